// Package ledgererr maps raw ledger submission failures onto a small closed
// set of user-facing categories. Classification only happens by evidence:
// known substrings and program error codes in the failure's log lines. An
// unrecognized failure stays Unclassified with its message intact so the
// pattern table can be extended without losing information.
package ledgererr

import "strings"

// Category is the closed set of user-facing failure kinds.
type Category int32

const (
	CategoryUnclassified Category = iota
	CategoryDuplicateResourceName
	CategoryInvalidMintConfiguration
	CategoryInvalidBasketConfiguration
	CategoryOperationsDisabled
	CategoryDirectionDisallowed
)

func (c Category) String() string {
	switch c {
	case CategoryDuplicateResourceName:
		return "DuplicateResourceName"
	case CategoryInvalidMintConfiguration:
		return "InvalidMintConfiguration"
	case CategoryInvalidBasketConfiguration:
		return "InvalidBasketConfiguration"
	case CategoryOperationsDisabled:
		return "OperationsDisabled"
	case CategoryDirectionDisallowed:
		return "DirectionDisallowed"
	default:
		return "Unclassified"
	}
}

// SubmissionError is the structured failure returned by the ledger client:
// an opaque top-level message plus whatever program log lines the node
// relayed. Either part may be empty.
type SubmissionError struct {
	Message string
	Logs    []string
}

func (e *SubmissionError) Error() string {
	return e.Message
}

// Classified is the classifier's verdict. Detail always preserves the raw
// message verbatim; UserMessage is short and actionable.
type Classified struct {
	Category    Category
	UserMessage string
	Detail      string
}

// pattern maps a known log substring to a category. Order matters: the
// first hit across the log lines wins, scanned in table order.
type pattern struct {
	substring string
	category  Category
	message   string
}

// patternTable is scanned against log lines first, then against the
// top-level message. Extend it as new program failures are identified in
// the wild; anything unrecognized surfaces verbatim as Unclassified.
var patternTable = []pattern{
	// Allocation of an address that already exists: the chosen basket name
	// derives the account seed, so a collision means the name is taken.
	{"already in use", CategoryDuplicateResourceName, "That name is taken. Choose a different name."},

	// Token program rejects the mint setup for the basket token.
	{"custom program error: 0x2", CategoryInvalidMintConfiguration, "The basket token could not be configured. Check the mint settings."},
	{"InvalidMint", CategoryInvalidMintConfiguration, "The basket token could not be configured. Check the mint settings."},

	// Basket program's own validation of the composition.
	{"InvalidBasketConfig", CategoryInvalidBasketConfiguration, "The basket composition was rejected. Check asset weights."},
	{"WeightSumInvalid", CategoryInvalidBasketConfiguration, "The basket composition was rejected. Check asset weights."},

	// Program-wide or per-basket trading gate.
	{"OperationsPaused", CategoryOperationsDisabled, "Trading is currently paused. Try again later."},
	{"BasketInactive", CategoryOperationsDisabled, "Trading is currently paused. Try again later."},

	// Direction gate: the basket forbids the requested side.
	{"ShortNotAllowed", CategoryDirectionDisallowed, "This basket does not allow that direction."},
	{"LongNotAllowed", CategoryDirectionDisallowed, "This basket does not allow that direction."},
}

const unclassifiedMessage = "The transaction failed. Please try again."

// Classify scans the failure's log lines, then its message, for known
// patterns. It never fabricates a more specific category than the evidence
// supports.
func Classify(err *SubmissionError) Classified {
	if err == nil {
		return Classified{Category: CategoryUnclassified, UserMessage: unclassifiedMessage}
	}

	for _, line := range err.Logs {
		for _, p := range patternTable {
			if strings.Contains(line, p.substring) {
				return Classified{Category: p.category, UserMessage: p.message, Detail: err.Message}
			}
		}
	}

	for _, p := range patternTable {
		if strings.Contains(err.Message, p.substring) {
			return Classified{Category: p.category, UserMessage: p.message, Detail: err.Message}
		}
	}

	return Classified{
		Category:    CategoryUnclassified,
		UserMessage: unclassifiedMessage,
		Detail:      err.Message,
	}
}
