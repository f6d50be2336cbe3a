package kafka

// Topics для событий заказов.
const (
	TopicOrderEvents = "erp.order.events"
	// TopicDeadLetterQueue принимает сообщения после исчерпания retry.
	TopicDeadLetterQueue = "erp.order.dlq"
)

// Заголовки DLQ-сообщений.
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)
