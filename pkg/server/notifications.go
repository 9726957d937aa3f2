package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vctt94/pokerreferee/pkg/contract"
)

// NotificationType names a message sent to the players of a contract.
type NotificationType string

const (
	NotifyNew           NotificationType = "contractnew"
	NotifyNewFail       NotificationType = "contractnewfail"
	NotifyAgree         NotificationType = "contractagree"
	NotifyAgreeFail     NotificationType = "contractagreefail"
	NotifyEncryptStore  NotificationType = "contractencryptstore"
	NotifySelectStore   NotificationType = "contractselectstore"
	NotifyDecryptStore  NotificationType = "contractdecryptstore"
	NotifyKeychainStore NotificationType = "contractkeychainstore"
	NotifyBet           NotificationType = "contractbet"
	NotifyEnd           NotificationType = "contractend"
	NotifyTimeout       NotificationType = "contracttimeout"
)

// storeNotifications maps store types to their notification.
var storeNotifications = map[StoreType]NotificationType{
	StoreEncrypt:  NotifyEncryptStore,
	StoreSelect:   NotifySelectStore,
	StoreDecrypt:  NotifyDecryptStore,
	StoreKeychain: NotifyKeychainStore,
}

// includesSender reports whether t is delivered to the acting player too.
func (t NotificationType) includesSender() bool {
	return t == NotifyEnd || t == NotifyTimeout
}

// Notification is one message to a player. Payload fields are flattened
// next to type, from and data; payload keys with those names are dropped.
type Notification struct {
	Type     NotificationType
	From     string
	Contract json.RawMessage
	Payload  map[string]interface{}
}

func (n *Notification) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(n.Payload)+3)
	for k, v := range n.Payload {
		switch k {
		case "type", "from", "data":
			continue
		}
		m[k] = v
	}
	m["type"] = n.Type
	m["from"] = n.From
	m["data"] = n.Contract
	return json.Marshal(m)
}

// Messenger delivers notifications to connected players.
type Messenger interface {
	Send(ctx context.Context, privateID string, n *Notification) error
}

// NotificationHandler sends contract events through the server's messenger.
type NotificationHandler struct {
	server *Server
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(server *Server) *NotificationHandler {
	return &NotificationHandler{server: server}
}

// HandleEvent delivers the event's notification to each recipient.
func (nh *NotificationHandler) HandleEvent(event *ContractEvent) {
	for _, pid := range event.Recipients {
		if err := nh.server.messenger.Send(context.Background(), pid, event.Notification); err != nil {
			nh.server.eventLog.Warnf("Failed to send %s for contract %s to %s: %v",
				event.Type, event.ContractKey, pid, err)
		}
	}
}

func errorPayload(err error) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{"message": err.Error()},
	}
}

// sendContractMessage publishes a snapshot of c to its seated players. The
// sender and exclude are skipped unless the type goes to everyone.
func (s *Server) sendContractMessage(typ NotificationType, c *contract.Contract, fromPID string,
	payload map[string]interface{}, exclude ...string) {

	skip := make(map[string]bool, len(exclude)+1)
	if !typ.includesSender() {
		skip[fromPID] = true
		for _, pid := range exclude {
			skip[pid] = true
		}
	}
	var recipients []string
	for _, p := range c.Players {
		if !skip[p.PrivateID] {
			recipients = append(recipients, p.PrivateID)
		}
	}
	if len(recipients) == 0 {
		return
	}

	data, err := json.Marshal(c)
	if err != nil {
		s.eventLog.Errorf("Failed to snapshot contract %s: %v", c.ContractID, err)
		return
	}
	s.eventProcessor.PublishEvent(&ContractEvent{
		Type:        typ,
		ContractKey: ContractRef{OwnerPID: c.OwnerPID, ContractID: c.ContractID}.key(),
		Recipients:  recipients,
		Notification: &Notification{
			Type:     typ,
			From:     fromPID,
			Contract: data,
			Payload:  payload,
		},
		Timestamp: s.cfg.Now(),
	})
}

// timestampPayload is attached to notifications that end a contract.
func timestampPayload(now time.Time, extra map[string]interface{}) map[string]interface{} {
	if extra == nil {
		extra = make(map[string]interface{})
	}
	extra["timestamp"] = now.UnixMilli()
	return extra
}
