package models

// Типы событий жизненного цикла подписки, приходящих от платежного провайдера.
const (
	SubscriptionCreated   = "subscription.created"
	SubscriptionUpdated   = "subscription.updated"
	SubscriptionCancelled = "subscription.cancelled"
	SubscriptionEnded     = "subscription.ended"
)

// EntitlementEvent описывает событие вебхука платежного провайдера.
// Событие одноразовое: его единственный устойчивый эффект — изменение
// полей IsPro и StripeCustomerID аккаунта.
type EntitlementEvent struct {
	Type string           `json:"type"`
	Data SubscriptionData `json:"data"`
}

// SubscriptionData полезная нагрузка события подписки.
type SubscriptionData struct {
	CustomerEmail string `json:"customer_email"`
	CustomerID    string `json:"customer_id"`
	Status        string `json:"status"`
}

// NotificationMessage сообщение для очереди уведомлений об изменении подписки.
type NotificationMessage struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Event    string `json:"event"`
	IsPro    bool   `json:"is_pro"`
}
