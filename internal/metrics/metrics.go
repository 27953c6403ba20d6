// Package metrics регистрирует счётчики Prometheus для ключевых
// бизнес-операций: покупок и исходящих писем.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PurchasesTotal успешные покупки.
	PurchasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolman_purchases_total",
		Help: "Total number of successful good purchases.",
	})

	// PurchaseConflictsTotal покупки, отклонённые из-за недоступности товара.
	PurchaseConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolman_purchase_conflicts_total",
		Help: "Total number of purchase attempts rejected because the good was not available.",
	})

	// EmailsSentTotal успешно отправленные письма по типу уведомления.
	EmailsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolman_emails_sent_total",
		Help: "Total number of notification emails accepted by the relay.",
	}, []string{"kind"})

	// EmailsFailedTotal неудачные отправки по типу уведомления.
	EmailsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolman_emails_failed_total",
		Help: "Total number of notification emails that failed to send.",
	}, []string{"kind"})
)
