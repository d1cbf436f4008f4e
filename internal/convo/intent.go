package convo

import "strings"

// Intent is the closed set of conversation intents the engine routes on.
type Intent string

const (
	IntentProductSearch  Intent = "product_search"
	IntentBalanceInquiry Intent = "balance_inquiry"
	IntentOrder          Intent = "order"
	IntentHelp           Intent = "help"
	IntentGreeting       Intent = "greeting"
	IntentAIQuery        Intent = "ai_query"
)

func (i Intent) String() string { return string(i) }

// Keyword lists per intent. Matching is case-insensitive substring matching,
// so Arabic prefixed forms (بالبحث, للرصيد) still hit their stems.
var (
	searchTerms   = []string{"بحث", "ابحث", "دور", "عندك", "موجود", "كتاب", "search", "find", "book"}
	balanceTerms  = []string{"رصيد", "حساب", "كم علي", "ديون", "balance", "account"}
	orderTerms    = []string{"طلب", "اطلب", "بدي", "شراء", "order", "buy"}
	helpTerms     = []string{"مساعدة", "ساعد", "كيف", "help"}
	greetingTerms = []string{"مرحبا", "هلا", "السلام", "صباح", "مساء", "hello", "hi"}
)

// rules is evaluated in order; the first matching rule wins, so a message
// containing both greeting and balance terms classifies as balance_inquiry.
var rules = []struct {
	intent Intent
	terms  []string
}{
	{IntentProductSearch, searchTerms},
	{IntentBalanceInquiry, balanceTerms},
	{IntentOrder, orderTerms},
	{IntentHelp, helpTerms},
	{IntentGreeting, greetingTerms},
}

// Classify maps a raw message to an intent. Messages matching no rule fall
// through to the AI assistant.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, term := range r.terms {
			if strings.Contains(lower, term) {
				return r.intent
			}
		}
	}
	return IntentAIQuery
}
