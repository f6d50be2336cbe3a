package domain

// statusTransitions задаёт разрешённые переходы статуса заказа.
// Таблица неизменяемая: все проверки идут через CheckTransition.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransition сообщает, разрешён ли переход current -> next.
// Переход в тот же статус не входит ни в одно множество и всегда запрещён.
func CanTransition(current, next OrderStatus) bool {
	allowed, ok := statusTransitions[current]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}

// CheckTransition возвращает ErrOrderValidation, если переход current -> next
// не разрешён таблицей переходов (в том числе из терминальных статусов).
func CheckTransition(current, next OrderStatus) error {
	if !CanTransition(current, next) {
		return ValidationErrorf("Invalid status transition from %s to %s", current, next)
	}
	return nil
}

// AllowedTransitions возвращает копию множества допустимых следующих статусов.
func AllowedTransitions(current OrderStatus) []OrderStatus {
	allowed, ok := statusTransitions[current]
	if !ok {
		return []OrderStatus{}
	}
	result := make([]OrderStatus, len(allowed))
	copy(result, allowed)
	return result
}
