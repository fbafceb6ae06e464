package model

// Intent is one of the closed set of intents the classifier can emit.
type Intent string

const (
	IntentGreeting            Intent = "greeting"
	IntentThanks              Intent = "thanks"
	IntentGoodbye             Intent = "goodbye"
	IntentAcknowledgment      Intent = "acknowledgment"
	IntentNegativeResponse    Intent = "negative_response"
	IntentPhoneInquiry        Intent = "phone_inquiry"
	IntentReturnPolicy        Intent = "return_policy"
	IntentShippingInfo        Intent = "shipping_info"
	IntentWebsiteInquiry      Intent = "website_inquiry"
	IntentContactInfo         Intent = "contact_info"
	IntentPaymentInfo         Intent = "payment_info"
	IntentAddressInquiry      Intent = "address_inquiry"
	IntentProductSearch       Intent = "product_search"
	IntentProductColorQuery   Intent = "product_color_query"
	IntentProductSizeQuery    Intent = "product_size_query"
	IntentPriceInquiry        Intent = "price_inquiry"
	IntentStockInquiry        Intent = "stock_inquiry"
	IntentSizeInquiry         Intent = "size_inquiry"
	IntentFollowUp            Intent = "followup"
	IntentClarificationNeeded Intent = "clarification_needed"
	IntentOrderRequest        Intent = "order_request"
	IntentOrderStatus         Intent = "order_status"
	IntentComplaint           Intent = "complaint"
	IntentGeneralInfo         Intent = "general_info"
	IntentUnclear             Intent = "unclear"
	IntentNeedsLLM            Intent = "needs_llm"
	IntentError               Intent = "error"
)

// AllIntents lists the closed intent set in declaration order.
var AllIntents = []Intent{
	IntentGreeting, IntentThanks, IntentGoodbye, IntentAcknowledgment, IntentNegativeResponse,
	IntentPhoneInquiry, IntentReturnPolicy, IntentShippingInfo, IntentWebsiteInquiry, IntentContactInfo,
	IntentPaymentInfo, IntentAddressInquiry, IntentProductSearch, IntentProductColorQuery,
	IntentProductSizeQuery, IntentPriceInquiry, IntentStockInquiry, IntentSizeInquiry, IntentFollowUp,
	IntentClarificationNeeded, IntentOrderRequest, IntentOrderStatus, IntentComplaint, IntentGeneralInfo,
	IntentUnclear, IntentNeedsLLM, IntentError,
}

var knownIntents = func() map[Intent]struct{} {
	m := make(map[Intent]struct{}, len(AllIntents))
	for _, i := range AllIntents {
		m[i] = struct{}{}
	}
	return m
}()

// Valid reports whether i belongs to the closed intent set.
func (i Intent) Valid() bool {
	_, ok := knownIntents[i]
	return ok
}

// ParseIntent maps a raw label to an Intent, returning unclear for unknown labels.
func ParseIntent(s string) Intent {
	i := Intent(s)
	if i.Valid() {
		return i
	}
	return IntentUnclear
}

// IsProductIntent reports whether the intent is answered through retrieval.
func (i Intent) IsProductIntent() bool {
	return i == IntentProductSearch || i == IntentProductColorQuery || i == IntentProductSizeQuery
}

// Method records which classifier layer or path produced a result.
type Method string

const (
	MethodCache     Method = "cache"
	MethodRule      Method = "rule"
	MethodLLM       Method = "llm"
	MethodHeuristic Method = "heuristic"
	MethodContext   Method = "context"
	MethodFallback  Method = "fallback"
)

// Entities carries the typed slots extracted alongside an intent.
type Entities struct {
	ProductName string   `json:"product_name,omitempty"`
	Features    []string `json:"product_features,omitempty"`
	Color       string   `json:"color,omitempty"`
	Size        string   `json:"size,omitempty"`
	// Response is a pre-rendered reply set by rules that already know the answer.
	Response string `json:"response,omitempty"`
}

// IntentResult is the classifier output.
type IntentResult struct {
	Intent     Intent   `json:"intent"`
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"confidence"`
	Method     Method   `json:"method"`
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
