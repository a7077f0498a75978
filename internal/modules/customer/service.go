package customer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

const defaultCountry = "US"

// Upserter links an order to a platform customer, creating one when needed.
// No failure here aborts the order.
type Upserter struct {
	dir Directory
	log *slog.Logger
}

func NewUpserter(dir Directory, log *slog.Logger) *Upserter {
	return &Upserter{dir: dir, log: log}
}

// Upsert returns the customer id and whether one is available.
func (u *Upserter) Upsert(ctx context.Context, in Input) (int64, bool) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		u.log.Warn("no customer email, order will not be linked", "stage", "upsert_customer")
		return 0, false
	}
	first, last := SplitName(in.Name)
	note := Note(in.DeliveryDate, in.DeliveryTime, in.Instructions)

	existing, err := u.dir.SearchCustomerByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		_, uerr := u.dir.UpdateCustomer(ctx, shopify.Customer{
			ID:        existing.ID,
			FirstName: first,
			LastName:  last,
			Phone:     in.Phone,
			Note:      note,
		})
		if uerr != nil {
			u.log.Warn("customer update failed", "stage", "upsert_customer", "customer_id", existing.ID, "error", uerr)
		} else {
			u.log.Info("customer updated", "stage", "upsert_customer", "customer_id", existing.ID)
		}
		return existing.ID, true
	case err == nil, errors.Is(err, shopify.ErrNotFound):
		// no match, create below
	default:
		u.log.Warn("customer search failed, attempting create", "stage", "upsert_customer", "email", email, "error", err)
	}

	created, err := u.dir.CreateCustomer(ctx, shopify.Customer{
		Email:         email,
		FirstName:     first,
		LastName:      last,
		Phone:         in.Phone,
		Note:          note,
		VerifiedEmail: true,
		Addresses:     []shopify.Address{defaultAddress(first, last, in.Phone, in.Address)},
	})
	if err == nil && created == nil {
		err = errors.New("empty create response")
	}
	if err != nil {
		u.log.Warn("customer create failed, order will not be linked", "stage", "upsert_customer", "email", email, "error", err)
		return 0, false
	}
	u.log.Info("customer created", "stage", "upsert_customer", "customer_id", created.ID)
	return created.ID, true
}

// SplitName splits on the first run of whitespace.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	i := strings.IndexFunc(name, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return name, ""
	}
	return name[:i], strings.TrimSpace(name[i:])
}

// Note folds delivery details into the customer's free-text note.
func Note(date, time, instructions string) string {
	var lines []string
	if when := strings.TrimSpace(date + " " + time); when != "" {
		lines = append(lines, "Delivery: "+when)
	}
	if s := strings.TrimSpace(instructions); s != "" {
		lines = append(lines, "Instructions: "+s)
	}
	return strings.Join(lines, "\n")
}

func defaultAddress(first, last, phone string, a address.Address) shopify.Address {
	return shopify.Address{
		FirstName: first,
		LastName:  last,
		Address1:  a.Street,
		City:      a.City,
		Province:  a.State,
		Zip:       a.Zip,
		Country:   defaultCountry,
		Phone:     phone,
		Default:   true,
	}
}
