package scheduler

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	catalogdomain "github.com/resellhub/notify-engine/internal/catalog/domain"
	"github.com/resellhub/notify-engine/internal/expiry"
	"github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/internal/recurrence"
)

// The rendered payload is frozen into the record at scheduling time so a
// later catalog change cannot silently rewrite an email already queued.

var expirySubjects = map[domain.Type]string{
	domain.TypeExpiringSoon1:   "Reminder: %s expires on %s",
	domain.TypeExpiringSoon2:   "Second reminder: %s expires on %s",
	domain.TypeExpiringSoon3:   "Final reminder: %s expires on %s",
	domain.TypeExpired:         "%s has expired",
	domain.TypeDeletionWarning: "%s is scheduled for deletion",
	domain.TypeDeleted:         "%s has been deleted",
}

var expiryBodyTmpl = template.Must(template.New("expiry").Parse(`<p>Dear customer,</p>
<p>Your {{.ServiceLabel}} <strong>{{.ServiceName}}</strong> {{.Clause}} on {{.ExpiryDate}}.</p>
<p>Please renew it from your dashboard to avoid any interruption.</p>
<p>— The ResellHub team</p>
`))

var invoiceBodyTmpl = template.Must(template.New("invoice").Parse(`<p>Dear customer,</p>
<p>This is a reminder that invoice <strong>{{.InvoiceNumber}}</strong> for {{.Amount}} is due on {{.DueDate}}.</p>
<p>You can view and pay the invoice from your dashboard.</p>
<p>— The ResellHub team</p>
`))

var expiryClauses = map[domain.Type]string{
	domain.TypeExpiringSoon1:   "expires",
	domain.TypeExpiringSoon2:   "expires",
	domain.TypeExpiringSoon3:   "expires",
	domain.TypeExpired:         "expired",
	domain.TypeDeletionWarning: "expired and will be deleted soon; it expired",
	domain.TypeDeleted:         "was deleted after expiring",
}

var serviceLabels = map[domain.ServiceType]string{
	domain.ServiceTypeDomain:  "domain",
	domain.ServiceTypeHosting: "hosting plan",
	domain.ServiceTypeVPS:     "VPS",
}

func renderExpiry(snapshot catalogdomain.ServiceSnapshot, result expiry.Result) (string, string, error) {
	date := snapshot.ExpiryDate.UTC().Format("2006-01-02")
	subject := fmt.Sprintf(expirySubjects[result.Type], snapshot.ServiceName, date)

	var body bytes.Buffer
	err := expiryBodyTmpl.Execute(&body, map[string]string{
		"ServiceLabel": serviceLabels[snapshot.ServiceType],
		"ServiceName":  snapshot.ServiceName,
		"Clause":       expiryClauses[result.Type],
		"ExpiryDate":   date,
	})
	if err != nil {
		return "", "", err
	}
	return subject, body.String(), nil
}

func renderInvoice(source catalogdomain.InvoiceReminderSource, occurrence recurrence.Occurrence) (string, string, error) {
	amount := fmt.Sprintf("%s %.2f", source.Currency, float64(source.TotalAmount)/100)
	dueDate := source.DueDate.UTC().Format("2006-01-02")

	subject := fmt.Sprintf("Payment reminder: invoice %s", source.InvoiceNumber)
	if occurrence.Type == domain.TypeInvoiceDueSoon {
		subject = fmt.Sprintf("Invoice %s is due on %s", source.InvoiceNumber, dueDate)
	}

	var body bytes.Buffer
	err := invoiceBodyTmpl.Execute(&body, map[string]string{
		"InvoiceNumber": source.InvoiceNumber,
		"Amount":        amount,
		"DueDate":       dueDate,
	})
	if err != nil {
		return "", "", err
	}
	return subject, body.String(), nil
}

func isoDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
