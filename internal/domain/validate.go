package domain

import "time"

// OrderItemInput — позиция заказа в том виде, в котором её присылает клиент.
// Total не принимается: итог позиции всегда вычисляется заново.
type OrderItemInput struct {
	ProductID string
	Quantity  int32
	Price     float64
}

// CreateOrderInput описывает вход операции создания заказа.
type CreateOrderInput struct {
	// OrderNumber заполняется сервисом, если клиент его не передал.
	OrderNumber string
	CustomerID  string
	Items       []OrderItemInput
	// TotalAmount — справочное значение от клиента; расхождение с вычисленной
	// суммой не является ошибкой, итог всегда перезаписывается.
	TotalAmount float64
	TaxAmount   float64
	Discount    float64
	Notes       string
	// OrderDate по умолчанию равен моменту создания.
	OrderDate time.Time
	CreatedBy string
}

// UpdateOrderInput описывает частичное обновление заказа.
// nil-поле означает "не трогать". Items заменяются только целиком:
// частичное редактирование позиций не поддерживается.
type UpdateOrderInput struct {
	CustomerID  *string
	Items       []OrderItemInput
	TotalAmount *float64
	TaxAmount   *float64
	Discount    *float64
	Notes       *string
	OrderDate   *time.Time
}

// ValidateCreate проверяет форму и числовые ограничения входа создания заказа.
// Возвращает первую найденную ошибку (fail-fast), позиции нумеруются с единицы.
func ValidateCreate(in CreateOrderInput) error {
	if in.OrderNumber == "" {
		return ValidationErrorf("Order number is required")
	}
	if in.CustomerID == "" {
		return ValidationErrorf("Customer ID is required")
	}
	if in.CreatedBy == "" {
		return ValidationErrorf("Created by user is required")
	}
	if in.TotalAmount < 0 {
		return ValidationErrorf("Total amount cannot be negative")
	}
	if in.TaxAmount < 0 {
		return ValidationErrorf("Tax amount cannot be negative")
	}
	if in.Discount < 0 {
		return ValidationErrorf("Discount cannot be negative")
	}
	if len(in.Items) == 0 {
		return ValidationErrorf("Order must have at least one item")
	}
	return validateItems(in.Items)
}

// ValidateUpdate применяет те же числовые проверки только к присутствующим полям.
func ValidateUpdate(patch UpdateOrderInput) error {
	if patch.CustomerID != nil && *patch.CustomerID == "" {
		return ValidationErrorf("Customer ID is required")
	}
	if patch.TotalAmount != nil && *patch.TotalAmount < 0 {
		return ValidationErrorf("Total amount cannot be negative")
	}
	if patch.TaxAmount != nil && *patch.TaxAmount < 0 {
		return ValidationErrorf("Tax amount cannot be negative")
	}
	if patch.Discount != nil && *patch.Discount < 0 {
		return ValidationErrorf("Discount cannot be negative")
	}
	if patch.Items != nil {
		if len(patch.Items) == 0 {
			return ValidationErrorf("Order must have at least one item")
		}
		return validateItems(patch.Items)
	}
	return nil
}

func validateItems(items []OrderItemInput) error {
	for idx, item := range items {
		n := idx + 1
		if item.ProductID == "" {
			return ValidationErrorf("Item %d: Product ID is required", n)
		}
		if item.Quantity <= 0 {
			return ValidationErrorf("Item %d: Quantity must be greater than 0", n)
		}
		if item.Price < 0 {
			return ValidationErrorf("Item %d: Price cannot be negative", n)
		}
	}
	return nil
}
