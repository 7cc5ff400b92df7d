package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/pkg/money"
)

// Order payment states owned by order management.
const (
	OrderPaymentUnpaid = "unpaid"
	OrderPaymentPaid   = "paid"

	OrderStatusProcessing = "processing"
)

// Order is the read model of a customer's purchase. This service only writes
// it on a synchronous debit approval.
type Order struct {
	id            uuid.UUID
	customerID    uuid.UUID
	orderNumber   string
	total         money.Money
	status        string
	paymentStatus string
	createdAt     time.Time
}

// ReconstructOrder recreates an Order from persistence.
func ReconstructOrder(
	id, customerID uuid.UUID,
	orderNumber string,
	total money.Money,
	status, paymentStatus string,
	createdAt time.Time,
) Order {
	return Order{
		id:            id,
		customerID:    customerID,
		orderNumber:   orderNumber,
		total:         total,
		status:        status,
		paymentStatus: paymentStatus,
		createdAt:     createdAt,
	}
}

func (o Order) ID() uuid.UUID { return o.id }
func (o Order) CustomerID() uuid.UUID { return o.customerID }
func (o Order) OrderNumber() string { return o.orderNumber }
func (o Order) Total() money.Money { return o.total }
func (o Order) Status() string { return o.status }
func (o Order) PaymentStatus() string { return o.paymentStatus }
func (o Order) CreatedAt() time.Time { return o.createdAt }
func (o Order) IsPaid() bool { return o.paymentStatus == OrderPaymentPaid }
