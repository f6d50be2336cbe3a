package domain

import "math"

// TotalEpsilon — допуск в денежных единицах при сравнении клиентской суммы
// с вычисленной. Расхождение больше допуска лишь диагностика, не ошибка.
const TotalEpsilon = 0.01

// ComputeItemTotal возвращает итог позиции: quantity * price.
func ComputeItemTotal(item OrderItem) float64 {
	return float64(item.Quantity) * item.Price
}

// ComputeTotal возвращает каноничную сумму заказа:
// Σ(quantity*price) - discount + tax. Вычисленное значение всегда
// перезаписывает то, что прислал клиент.
func ComputeTotal(items []OrderItem, discount, taxAmount float64) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += float64(item.Quantity) * item.Price
	}
	return subtotal - discount + taxAmount
}

// TotalMatches сравнивает клиентскую и вычисленную суммы с учётом допуска.
func TotalMatches(supplied, computed float64) bool {
	return math.Abs(supplied-computed) <= TotalEpsilon
}
