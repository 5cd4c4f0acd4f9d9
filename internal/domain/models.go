package domain

import "time"

type Product struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Category            string `json:"category"`
	BuyingCostCents     int64  `json:"buying_cost_cents"`
	WholesalePriceCents int64  `json:"wholesale_price_cents"`
	RetailPriceCents    int64  `json:"retail_price_cents"`
	Stock               int    `json:"stock"`
	MinStockLevel       int    `json:"min_stock_level"`
	Barcode             string `json:"barcode,omitempty"`
	Unit                string `json:"unit"`
	Active              bool   `json:"active"`
}

type ProductCreateRequest struct {
	StoreID             string `json:"store_id"`
	Name                string `json:"name"`
	Category            string `json:"category"`
	BuyingCostCents     int64  `json:"buying_cost_cents"`
	WholesalePriceCents int64  `json:"wholesale_price_cents"`
	RetailPriceCents    int64  `json:"retail_price_cents"`
	InitialStock        int    `json:"initial_stock"`
	MinStockLevel       int    `json:"min_stock_level"`
	Barcode             string `json:"barcode,omitempty"`
	Unit                string `json:"unit"`
}

type ProductUpdateRequest struct {
	Name                *string `json:"name,omitempty"`
	Category            *string `json:"category,omitempty"`
	BuyingCostCents     *int64  `json:"buying_cost_cents,omitempty"`
	WholesalePriceCents *int64  `json:"wholesale_price_cents,omitempty"`
	RetailPriceCents    *int64  `json:"retail_price_cents,omitempty"`
	MinStockLevel       *int    `json:"min_stock_level,omitempty"`
	Barcode             *string `json:"barcode,omitempty"`
	Unit                *string `json:"unit,omitempty"`
	Active              *bool   `json:"active,omitempty"`
}

type StockAdjustment struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type Customer struct {
	ID                      string    `json:"id"`
	StoreID                 string    `json:"store_id"`
	Name                    string    `json:"name"`
	Phone                   string    `json:"phone"`
	Email                   string    `json:"email,omitempty"`
	Address                 string    `json:"address,omitempty"`
	CreditLimitCents        int64     `json:"credit_limit_cents"`
	OutstandingBalanceCents int64     `json:"outstanding_balance_cents"`
	LoyaltyPoints           int       `json:"loyalty_points"`
	CreatedAt               time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	StoreID          string `json:"store_id"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email,omitempty"`
	Address          string `json:"address,omitempty"`
	CreditLimitCents int64  `json:"credit_limit_cents"`
}

type CustomerUpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Email            *string `json:"email,omitempty"`
	Address          *string `json:"address,omitempty"`
	CreditLimitCents *int64  `json:"credit_limit_cents,omitempty"`
}

// CartLine is a checkout request line. PriceCents overrides the product's
// retail price for this transaction only; zero means "use retail price".
type CartLine struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents,omitempty"`
}

type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

type DiscountSpec struct {
	Type  DiscountType `json:"type,omitempty"`
	Value float64      `json:"value,omitempty"`
}

type PaymentSplit struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference,omitempty"`
}

// TransactionLine is a by-value snapshot of a cart line at sale time. The unit
// buying cost is captured so profit reporting survives later catalog edits.
type TransactionLine struct {
	ProductID           string `json:"product_id"`
	Name                string `json:"name"`
	Category            string `json:"category"`
	Qty                 int    `json:"qty"`
	UnitPriceCents      int64  `json:"unit_price_cents"`
	UnitBuyingCostCents int64  `json:"unit_buying_cost_cents"`
}

type Transaction struct {
	ID                string            `json:"id"`
	StoreID           string            `json:"store_id"`
	AttendantID       string            `json:"attendant_id"`
	CustomerID        string            `json:"customer_id,omitempty"`
	IdempotencyKey    string            `json:"idempotency_key,omitempty"`
	Items             []TransactionLine `json:"items"`
	SubtotalCents     int64             `json:"subtotal_cents"`
	DiscountCents     int64             `json:"discount_cents"`
	LoyaltyCents      int64             `json:"loyalty_cents"`
	LoyaltyPointsUsed int               `json:"loyalty_points_used"`
	TotalCents        int64             `json:"total_cents"`
	PaymentMethod     string            `json:"payment_method"`
	PaymentSplits     []PaymentSplit    `json:"payment_splits"`
	CashReceivedCents int64             `json:"cash_received_cents,omitempty"`
	ChangeCents       int64             `json:"change_cents,omitempty"`
	Status            string            `json:"status"`
	StatusReason      string            `json:"status_reason,omitempty"`
	VoidedAt          *time.Time        `json:"voided_at,omitempty"`
	RefundedAt        *time.Time        `json:"refunded_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

const (
	TxStatusCompleted = "completed"
	TxStatusVoided    = "voided"
	TxStatusRefunded  = "refunded"
)

const (
	PayCash         = "cash"
	PayMpesa        = "mpesa"
	PayCredit       = "credit"
	PaySplit        = "split"
	PayHirePurchase = "hire_purchase"
)

type CheckoutRequest struct {
	StoreID           string         `json:"store_id"`
	AttendantID       string         `json:"attendant_id"`
	IdempotencyKey    string         `json:"idempotency_key,omitempty"`
	CustomerID        string         `json:"customer_id,omitempty"`
	PaymentMethod     string         `json:"payment_method"`
	PaymentPhone      string         `json:"payment_phone,omitempty"`
	PaymentSplits     []PaymentSplit `json:"payment_splits,omitempty"`
	CashReceivedCents int64          `json:"cash_received_cents,omitempty"`
	Discount          DiscountSpec   `json:"discount,omitempty"`
	LoyaltyPointsUsed int            `json:"loyalty_points_used,omitempty"`
	Lines             []CartLine     `json:"lines"`

	// Hire purchase terms, required when PaymentMethod is hire_purchase.
	DownPaymentCents int64  `json:"down_payment_cents,omitempty"`
	InstallmentCents int64  `json:"installment_cents,omitempty"`
	Period           string `json:"period,omitempty"`
}

type CheckoutResponse struct {
	Transaction  Transaction   `json:"transaction"`
	HirePurchase *HirePurchase `json:"hire_purchase,omitempty"`
	Duplicate    bool          `json:"duplicate"`
}

type CartValidationRequest struct {
	StoreID    string `json:"store_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents,omitempty"`
}

type CartValidationResponse struct {
	OK             bool   `json:"ok"`
	Reason         string `json:"reason,omitempty"`
	AvailableStock int    `json:"available_stock"`
}

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

const (
	HirePurchaseActive    = "active"
	HirePurchaseCompleted = "completed"
	HirePurchaseDefaulted = "defaulted"
)

type HirePurchasePayment struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Reference   string    `json:"reference,omitempty"`
	PaidAt      time.Time `json:"paid_at"`
}

type HirePurchase struct {
	ID                    string                `json:"id"`
	StoreID               string                `json:"store_id"`
	CustomerID            string                `json:"customer_id"`
	TransactionID         string                `json:"transaction_id"`
	Items                 []TransactionLine     `json:"items"`
	TotalCents            int64                 `json:"total_cents"`
	DownPaymentCents      int64                 `json:"down_payment_cents"`
	RemainingBalanceCents int64                 `json:"remaining_balance_cents"`
	InstallmentCents      int64                 `json:"installment_cents"`
	Period                string                `json:"period"`
	StartDate             time.Time             `json:"start_date"`
	NextPaymentDate       time.Time             `json:"next_payment_date"`
	EndDate               time.Time             `json:"end_date"`
	Status                string                `json:"status"`
	Payments              []HirePurchasePayment `json:"payments"`
}

type HirePurchasePaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Reference   string `json:"reference,omitempty"`
}

const (
	StoreActive    = "active"
	StoreInactive  = "inactive"
	StoreSuspended = "suspended"
)

type StoreLocation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	ManagerID string    `json:"manager_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type StoreCreateRequest struct {
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	ManagerID string `json:"manager_id,omitempty"`
}

// StoreSettings is persisted as a single JSON blob per store and validated on
// load rather than at each read site.
type StoreSettings struct {
	BusinessName        string `json:"business_name"`
	ReceiptHeader       string `json:"receipt_header,omitempty"`
	ReceiptFooter       string `json:"receipt_footer,omitempty"`
	CurrencyCode        string `json:"currency_code"`
	AllowBelowWholesale bool   `json:"allow_below_wholesale"`
	PrinterAddr         string `json:"printer_addr,omitempty"`
	PrinterEnabled      bool   `json:"printer_enabled"`
}

type HeldCart struct {
	ID                string       `json:"id"`
	StoreID           string       `json:"store_id"`
	AttendantID       string       `json:"attendant_id"`
	CustomerID        string       `json:"customer_id,omitempty"`
	Note              string       `json:"note,omitempty"`
	Lines             []CartLine   `json:"lines"`
	Discount          DiscountSpec `json:"discount,omitempty"`
	LoyaltyPointsUsed int          `json:"loyalty_points_used,omitempty"`
	HeldAt            time.Time    `json:"held_at"`
}

type HoldCartRequest struct {
	StoreID           string       `json:"store_id"`
	AttendantID       string       `json:"attendant_id"`
	CustomerID        string       `json:"customer_id,omitempty"`
	Note              string       `json:"note,omitempty"`
	Lines             []CartLine   `json:"lines"`
	Discount          DiscountSpec `json:"discount,omitempty"`
	LoyaltyPointsUsed int          `json:"loyalty_points_used,omitempty"`
}

type VoidTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
	StoreID       string `json:"store_id"`
	Reason        string `json:"reason"`
	ManagerPIN    string `json:"manager_pin"`
}

type RefundTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
	StoreID       string `json:"store_id"`
	Reason        string `json:"reason"`
	ManagerPIN    string `json:"manager_pin"`
}

type ReceiptRequest struct {
	StoreID       string `json:"store_id"`
	TransactionID string `json:"transaction_id"`
}

type ReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	Text          string `json:"text"`
	FileName      string `json:"file_name"`
}

type PrintReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	Printed       bool   `json:"printed"`
	Fallback      string `json:"fallback,omitempty"`
	Error         string `json:"error,omitempty"`
}

type LowStockItem struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Stock         int    `json:"stock"`
	MinStockLevel int    `json:"min_stock_level"`
}

type LowStockResponse struct {
	StoreID     string         `json:"store_id"`
	GeneratedAt string         `json:"generated_at"`
	Items       []LowStockItem `json:"items"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type AttendantCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AttendantUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
