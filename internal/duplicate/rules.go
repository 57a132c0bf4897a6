package duplicate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"dailyowo/internal/core"
)

// Rule names as reported on a Match.
const (
	RuleExactAmount        = "exact_amount"
	RuleSimilarAmount      = "similar_amount"
	RuleSameCategory       = "same_category"
	RuleSameMerchant       = "same_merchant"
	RuleSimilarDescription = "similar_description"
	RuleSamePaymentMethod  = "same_payment_method"
	RuleSameLocation       = "same_location"
	RuleCloseTime          = "close_time"
)

// rule scores one signal between two transactions. It returns the points it
// contributes and a human-readable reason when it fires.
type rule struct {
	name  string
	score func(a, b core.Transaction) (int, string)
}

// rules are independent; their points are summed.
var rules = []rule{
	{RuleExactAmount, exactAmount},
	{RuleSimilarAmount, similarAmount},
	{RuleSameCategory, sameCategory},
	{RuleSameMerchant, sameMerchant},
	{RuleSimilarDescription, similarDescription},
	{RuleSamePaymentMethod, samePaymentMethod},
	{RuleSameLocation, sameLocation},
	{RuleCloseTime, closeTime},
}

func isExactAmount(a, b core.Transaction) bool {
	return math.Abs(a.Amount-b.Amount) < 0.01
}

func exactAmount(a, b core.Transaction) (int, string) {
	if isExactAmount(a, b) {
		return 30, fmt.Sprintf("Same amount (%.2f)", a.Amount)
	}
	return 0, ""
}

// similarAmount compares the difference relative to the larger amount.
func similarAmount(a, b core.Transaction) (int, string) {
	hi := math.Max(a.Amount, b.Amount)
	if hi <= 0 {
		return 0, ""
	}
	pct := math.Abs(a.Amount-b.Amount) / hi * 100
	switch {
	case pct <= 1:
		return 20, fmt.Sprintf("Amounts within 1%% (%.2f vs %.2f)", a.Amount, b.Amount)
	case pct <= 5:
		return 15, fmt.Sprintf("Amounts within 5%% (%.2f vs %.2f)", a.Amount, b.Amount)
	}
	return 0, ""
}

// isSameCategory treats two uncategorized transactions as unrelated.
func isSameCategory(a, b core.Transaction) bool {
	return a.CategoryID != "" && a.CategoryID == b.CategoryID
}

func sameCategory(a, b core.Transaction) (int, string) {
	if isSameCategory(a, b) {
		return 15, fmt.Sprintf("Same category (%s)", a.CategoryID)
	}
	return 0, ""
}

func sameMerchant(a, b core.Transaction) (int, string) {
	ma, mb := strings.TrimSpace(a.Merchant), strings.TrimSpace(b.Merchant)
	if ma != "" && mb != "" && strings.EqualFold(ma, mb) {
		return 25, fmt.Sprintf("Same merchant (%s)", ma)
	}
	return 0, ""
}

func similarDescription(a, b core.Transaction) (int, string) {
	da, db := normalize(a.Description), normalize(b.Description)
	if da == "" || db == "" {
		return 0, ""
	}
	if da == db {
		return 20, "Identical description"
	}
	sim := Similarity(da, db)
	var pts int
	switch {
	case sim >= 0.9:
		pts = 18
	case sim >= 0.8:
		pts = 15
	case sim >= 0.7:
		pts = 10
	default:
		return 0, ""
	}
	return pts, fmt.Sprintf("Similar description (%.0f%% match)", sim*100)
}

func samePaymentMethod(a, b core.Transaction) (int, string) {
	if a.PaymentMethod != "" && a.PaymentMethod == b.PaymentMethod {
		return 10, fmt.Sprintf("Same payment method (%s)", a.PaymentMethod)
	}
	return 0, ""
}

func sameLocation(a, b core.Transaction) (int, string) {
	la, lb := strings.TrimSpace(a.LocationName()), strings.TrimSpace(b.LocationName())
	if la != "" && lb != "" && strings.EqualFold(la, lb) {
		return 15, fmt.Sprintf("Same location (%s)", la)
	}
	return 0, ""
}

func closeTime(a, b core.Transaction) (int, string) {
	d := a.Date.Sub(b.Date)
	if d < 0 {
		d = -d
	}
	switch {
	case d <= 5*time.Minute:
		return 10, "Within 5 minutes of each other"
	case d <= 30*time.Minute:
		return 8, "Within 30 minutes of each other"
	case d <= 2*time.Hour:
		return 5, "Within 2 hours of each other"
	}
	return 0, ""
}
