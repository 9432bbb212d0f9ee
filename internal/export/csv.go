// Package export renders participant and finance listings as CSV files
// that open cleanly in spreadsheet tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
)

// bom makes Excel detect UTF-8.
const bom = "\uFEFF"

const dateTimeLayout = "02/01/2006 às 15:04"

// Brazil has not observed daylight saving since 2019.
var brt = time.FixedZone("BRT", -3*60*60)

var participantHeader = []string{
	"Código",
	"Nome",
	"Email",
	"Telefone",
	"Documento",
	"Evento",
	"Data Evento",
	"Tipo Ingresso",
	"Quantidade",
	"Valor Total",
	"Status Pagamento",
	"Método Pagamento",
	"Status Inscrição",
	"Data Check-in",
	"Data Inscrição",
}

var transactionHeader = []string{
	"Data",
	"ID Transação",
	"Evento",
	"Participante",
	"Email",
	"Quantidade",
	"Valor Bruto",
	"Taxa",
	"Valor Líquido",
	"Status",
}

var statusLabels = map[domain.RegistrationStatus]string{
	domain.RegistrationConfirmed: "Confirmado",
	domain.RegistrationPending:   "Pendente",
	domain.RegistrationCancelled: "Cancelado",
	domain.RegistrationCheckedIn: "Check-in feito",
}

var paymentStatusLabels = map[domain.PaymentStatus]string{
	domain.PaymentFree:     "Gratuito",
	domain.PaymentPaid:     "Pago",
	domain.PaymentPending:  "Pendente",
	domain.PaymentRefunded: "Reembolsado",
	domain.PaymentFailed:   "Falhou",
}

var paymentMethodLabels = map[domain.PaymentMethod]string{
	domain.PaymentMethodCard:   "Cartão",
	domain.PaymentMethodPix:    "PIX",
	domain.PaymentMethodBoleto: "Boleto",
	domain.PaymentMethodFree:   "Gratuito",
}

// Filename returns e.g. "participantes_2026-03-10_153000.csv".
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.In(brt).Format("2006-01-02_150405"))
}

// WriteParticipants writes the BOM, the header and one row per registration.
func WriteParticipants(w io.Writer, rows []domain.Registration) error {
	cw, err := newWriter(w, participantHeader)
	if err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		method := ""
		if r.PaymentMethod != nil {
			method = label(paymentMethodLabels, *r.PaymentMethod)
		}
		record := []string{
			r.TicketCode,
			r.ParticipantName,
			r.ParticipantEmail,
			deref(r.ParticipantPhone),
			deref(r.ParticipantDocument),
			r.EventTitle,
			formatTime(r.EventStartDate, dateTimeLayout),
			r.TicketTitle,
			strconv.Itoa(r.Quantity),
			engine.FormatBRL(r.TotalAmount),
			label(paymentStatusLabels, r.PaymentStatus),
			method,
			label(statusLabels, r.Status),
			formatTime(r.CheckInDate, dateTimeLayout),
			formatTime(&r.DateCreated, dateTimeLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing participant row: %w", err)
		}
	}
	return flush(cw)
}

// WriteTransactions writes the finance ledger export.
func WriteTransactions(w io.Writer, rows []domain.Transaction) error {
	cw, err := newWriter(w, transactionHeader)
	if err != nil {
		return err
	}
	for i := range rows {
		t := &rows[i]
		id := t.ID
		if t.StripePaymentIntentID != nil && *t.StripePaymentIntentID != "" {
			id = *t.StripePaymentIntentID
		}
		record := []string{
			formatTime(&t.DateCreated, dateTimeLayout),
			id,
			t.EventTitle,
			t.ParticipantName,
			t.ParticipantEmail,
			strconv.Itoa(t.Quantity),
			engine.FormatDecimal(t.GrossAmount),
			engine.FormatDecimal(t.FeeAmount),
			engine.FormatDecimal(t.NetAmount),
			label(paymentStatusLabels, t.Status),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing transaction row: %w", err)
		}
	}
	return flush(cw)
}

func newWriter(w io.Writer, header []string) (*csv.Writer, error) {
	if _, err := io.WriteString(w, bom); err != nil {
		return nil, fmt.Errorf("writing bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return cw, nil
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func label[K ~string](labels map[K]string, k K) string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time, layout string) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(brt).Format(layout)
}
