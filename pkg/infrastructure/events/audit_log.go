package events

import (
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

// AuditedEvents are the event types written to the audit log
var AuditedEvents = []string{RunCompletedEvent, ShortageUnmetEvent, PlanConfirmedEvent, LineAddedEvent}

// AuditLog writes planning decisions to the process log
type AuditLog struct {
	log *logger.Logger
}

func NewAuditLog(log *logger.Logger) *AuditLog {
	return &AuditLog{log: logger.OrNop(log)}
}

var _ Handler = (*AuditLog)(nil)

func (a *AuditLog) CanHandle(eventType string) bool {
	for _, audited := range AuditedEvents {
		if audited == eventType {
			return true
		}
	}
	return false
}

func (a *AuditLog) Handle(record Record) error {
	kv := []interface{}{"event_type", record.Type, "run_id", record.RunID, "version", record.Version}
	switch data := record.Data.(type) {
	case RunCompleted:
		kv = append(kv, "lines", data.Lines, "suggested_total", data.SuggestedTotal.String(), "unmet_total", data.UnmetTotal.String())
	case ShortageUnmet:
		kv = append(kv, "product_code", data.Shortage.ProductCode, "machine_id", data.Shortage.MachineID, "unmet_qty", data.Shortage.UnmetQty.String())
	case PlanConfirmed:
		kv = append(kv, "overridden", data.Overridden, "final_total", data.FinalTotal.String())
	case LineAdded:
		kv = append(kv, "product_code", data.Line.ProductCode, "machine_id", data.Line.MachineID, "final_qty", data.Line.FinalQty.String())
	}
	a.log.Info("audit", kv...)
	return nil
}

// SubscribeAuditLog routes the audited events of store to log
func SubscribeAuditLog(store Store, log *logger.Logger) {
	store.Subscribe(AuditedEvents, NewAuditLog(log))
}
