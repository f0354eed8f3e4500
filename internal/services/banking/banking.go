// Package banking отдаёт демонстрационные банковские данные для платных
// маршрутов: счета, операции, счета на оплату и имитацию перевода.
//
// Данные генерируются детерминированно из идентификатора пользователя, поэтому
// один и тот же пользователь всегда видит один и тот же набор.
package banking

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
)

const (
	transactionCount = 45
	invoiceCount     = 6
)

var (
	// ErrUnknownAccount возвращается, если счёт списания не принадлежит пользователю.
	ErrUnknownAccount = apperr.New(apperr.KindValidation, "unknown source account")
	// ErrSameAccount возвращается при переводе на тот же счёт.
	ErrSameAccount = apperr.New(apperr.KindValidation, "source and destination accounts must differ")
	// ErrInsufficientFunds возвращается, если сумма превышает баланс счёта.
	ErrInsufficientFunds = apperr.New(apperr.KindValidation, "insufficient funds")
)

// Account описывает банковский счёт пользователя.
type Account struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Transaction — операция по счёту. Отрицательная сумма означает списание.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
}

// Invoice — выставленный счёт на оплату.
type Invoice struct {
	ID       string    `json:"id"`
	Number   string    `json:"number"`
	Customer string    `json:"customer"`
	Amount   float64   `json:"amount"`
	Status   string    `json:"status"`
	IssuedAt time.Time `json:"issuedAt"`
	DueDate  time.Time `json:"dueDate"`
}

// TransferRequest содержит параметры перевода между счетами.
type TransferRequest struct {
	FromAccount string  `json:"fromAccount" validate:"required"`
	ToAccount   string  `json:"toAccount" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Memo        string  `json:"memo" validate:"max=140"`
}

// TransferResult — результат имитации перевода. Деньги никуда не перемещаются.
type TransferResult struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	FromAccount string    `json:"fromAccount"`
	ToAccount   string    `json:"toAccount"`
	Amount      float64   `json:"amount"`
	Memo        string    `json:"memo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Service генерирует демонстрационные данные.
type Service struct {
	log *slog.Logger
	now func() time.Time
}

// NewService создаёт сервис. now задаёт опорную дату для операций; nil означает time.Now.
func NewService(log *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{log: log, now: now}
}

func seedFor(userID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func money(v float64) float64 {
	return math.Round(v*100) / 100
}

var accountKinds = []struct {
	name, kind string
	base       float64
}{
	{"Operating", "checking", 25000},
	{"Reserve", "savings", 80000},
	{"Payroll", "checking", 12000},
}

// Accounts возвращает счета пользователя.
func (s *Service) Accounts(_ context.Context, userID string) []Account {
	r := seedFor(userID)
	out := make([]Account, 0, len(accountKinds))
	for i, k := range accountKinds {
		out = append(out, Account{
			ID:       fmt.Sprintf("acc_%s_%d", shortID(userID), i+1),
			Name:     k.name,
			Type:     k.kind,
			Balance:  money(k.base * (0.5 + r.Float64())),
			Currency: "usd",
		})
	}
	return out
}

var txDescriptions = []struct {
	text, category string
	sign           float64
}{
	{"Customer payment", "income", 1},
	{"Cloud hosting", "infrastructure", -1},
	{"Office rent", "rent", -1},
	{"Contractor invoice", "services", -1},
	{"Card settlement", "income", 1},
	{"Software licenses", "software", -1},
	{"Bank fee", "fees", -1},
}

// Transactions возвращает страницу операций пользователя, новые первыми.
func (s *Service) Transactions(ctx context.Context, userID string, p pagination.Params) pagination.Envelope[Transaction] {
	accounts := s.Accounts(ctx, userID)
	r := seedFor(userID + ":transactions")
	day := s.now().UTC().Truncate(24 * time.Hour)

	txs := make([]Transaction, 0, transactionCount)
	for i := 0; i < transactionCount; i++ {
		d := txDescriptions[r.Intn(len(txDescriptions))]
		acc := accounts[r.Intn(len(accounts))]
		txs = append(txs, Transaction{
			ID:          fmt.Sprintf("tx_%s_%03d", shortID(userID), i+1),
			AccountID:   acc.ID,
			Date:        day.AddDate(0, 0, -i).Add(time.Duration(r.Intn(86400)) * time.Second),
			Description: d.text,
			Category:    d.category,
			Amount:      money(d.sign * (10 + r.Float64()*4990)),
		})
	}
	return pagination.Slice(txs, p)
}

var invoiceStatuses = []string{"paid", "open", "overdue"}

// Invoices возвращает выставленные счета пользователя.
func (s *Service) Invoices(_ context.Context, userID string) []Invoice {
	r := seedFor(userID + ":invoices")
	day := s.now().UTC().Truncate(24 * time.Hour)

	out := make([]Invoice, 0, invoiceCount)
	for i := 0; i < invoiceCount; i++ {
		issued := day.AddDate(0, 0, -15*i)
		out = append(out, Invoice{
			ID:       fmt.Sprintf("inv_%s_%d", shortID(userID), i+1),
			Number:   fmt.Sprintf("INV-%04d", 1000+r.Intn(9000)),
			Customer: fmt.Sprintf("Customer %c", 'A'+rune(r.Intn(26))),
			Amount:   money(100 + r.Float64()*9900),
			Status:   invoiceStatuses[r.Intn(len(invoiceStatuses))],
			IssuedAt: issued,
			DueDate:  issued.AddDate(0, 0, 30),
		})
	}
	return out
}

// Transfer проверяет параметры перевода и возвращает подтверждение. Балансы не меняются.
func (s *Service) Transfer(ctx context.Context, userID string, req TransferRequest) (TransferResult, error) {
	if req.FromAccount == req.ToAccount {
		return TransferResult{}, ErrSameAccount
	}

	var from *Account
	for _, acc := range s.Accounts(ctx, userID) {
		if acc.ID == req.FromAccount {
			from = &acc
			break
		}
	}
	if from == nil {
		return TransferResult{}, ErrUnknownAccount
	}
	amount := money(req.Amount)
	if amount > from.Balance {
		return TransferResult{}, ErrInsufficientFunds
	}

	res := TransferResult{
		ID:          uuid.NewString(),
		Status:      "completed",
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      amount,
		Memo:        req.Memo,
		CreatedAt:   s.now().UTC(),
	}
	s.log.Info("mock transfer accepted",
		slog.String("user_id", userID), slog.String("transfer_id", res.ID), slog.Float64("amount", amount))
	return res, nil
}

func shortID(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return fmt.Sprintf("%08x", h.Sum32())
}
