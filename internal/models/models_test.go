package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestScalingLogPaymentTransitions(t *testing.T) {
	l := ScalingLog{PaymentStatus: PaymentStatusPending}

	l.MarkPaid("wallet-abc")
	if l.PaymentStatus != PaymentStatusPaid || l.PaymentReference != "wallet-abc" {
		t.Errorf("after MarkPaid: status=%v ref=%q", l.PaymentStatus, l.PaymentReference)
	}

	// Marking paid again keeps the state; empty reference keeps the old one
	l.MarkPaid("")
	if l.PaymentStatus != PaymentStatusPaid || l.PaymentReference != "wallet-abc" {
		t.Errorf("second MarkPaid changed state: status=%v ref=%q", l.PaymentStatus, l.PaymentReference)
	}

	// A new reference is allowed to replace the old
	l.MarkPaid("inv-42")
	if l.PaymentReference != "inv-42" {
		t.Errorf("reference = %q, want inv-42", l.PaymentReference)
	}

	l.MarkFailed()
	if l.PaymentStatus != PaymentStatusFailed {
		t.Errorf("after MarkFailed: %v", l.PaymentStatus)
	}
	l.MarkPending()
	if l.PaymentStatus != PaymentStatusPending {
		t.Errorf("after MarkPending: %v", l.PaymentStatus)
	}
}

func TestPromoCodeIsRedeemable(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		p    PromoCode
		want bool
	}{
		{"active unlimited", PromoCode{IsActive: true}, true},
		{"inactive", PromoCode{IsActive: false}, false},
		{"under max uses", PromoCode{IsActive: true, MaxUses: 5, UsedCount: 4}, true},
		{"at max uses", PromoCode{IsActive: true, MaxUses: 5, UsedCount: 5}, false},
		{"zero max uses is unlimited", PromoCode{IsActive: true, MaxUses: 0, UsedCount: 1000}, true},
		{"not yet expired", PromoCode{IsActive: true, ExpiresAt: &future}, true},
		{"expired", PromoCode{IsActive: true, ExpiresAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsRedeemable(now); got != tt.want {
				t.Errorf("IsRedeemable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserRoleJSON(t *testing.T) {
	data, err := json.Marshal(UserRoleAdmin)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"admin"` {
		t.Errorf("marshaled role = %s, want \"admin\"", data)
	}

	var role UserRole
	if err := json.Unmarshal([]byte(`"customer"`), &role); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if role != UserRoleCustomer {
		t.Errorf("role = %v, want customer", role)
	}
}
