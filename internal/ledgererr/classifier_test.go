package ledgererr_test

import (
	"BasketEngine/internal/ledgererr"
	"testing"
)

func TestClassify_KnownPatterns(t *testing.T) {
	cases := []struct {
		name string
		err  *ledgererr.SubmissionError
		want ledgererr.Category
	}{
		{
			"allocation collision",
			&ledgererr.SubmissionError{
				Message: "Transaction simulation failed",
				Logs: []string{
					"Program 11111111111111111111111111111111 invoke [1]",
					"Allocate: account Address { address: 7xKX..., base: None } already in use",
				},
			},
			ledgererr.CategoryDuplicateResourceName,
		},
		{
			"mint program error code",
			&ledgererr.SubmissionError{
				Message: "Transaction simulation failed",
				Logs:    []string{"Program failed: custom program error: 0x2"},
			},
			ledgererr.CategoryInvalidMintConfiguration,
		},
		{
			"basket config rejection",
			&ledgererr.SubmissionError{
				Message: "failed",
				Logs:    []string{"Program log: Error: WeightSumInvalid"},
			},
			ledgererr.CategoryInvalidBasketConfiguration,
		},
		{
			"operations paused",
			&ledgererr.SubmissionError{
				Message: "failed",
				Logs:    []string{"Program log: Error: OperationsPaused"},
			},
			ledgererr.CategoryOperationsDisabled,
		},
		{
			"direction gate",
			&ledgererr.SubmissionError{
				Message: "failed",
				Logs:    []string{"Program log: Error: ShortNotAllowed"},
			},
			ledgererr.CategoryDirectionDisallowed,
		},
		{
			"pattern in message when logs empty",
			&ledgererr.SubmissionError{Message: "account already in use"},
			ledgererr.CategoryDuplicateResourceName,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ledgererr.Classify(c.err)
			if got.Category != c.want {
				t.Errorf("category: got %s, want %s", got.Category, c.want)
			}
			if got.UserMessage == "" {
				t.Error("user message must not be empty")
			}
		})
	}
}

func TestClassify_UnknownStaysUnclassifiedVerbatim(t *testing.T) {
	raw := "RPC node returned: some entirely novel failure mode 0xdeadbeef"
	got := ledgererr.Classify(&ledgererr.SubmissionError{
		Message: raw,
		Logs:    []string{"Program log: something unrecognized"},
	})

	if got.Category != ledgererr.CategoryUnclassified {
		t.Fatalf("category: got %s, want Unclassified", got.Category)
	}
	if got.Detail != raw {
		t.Errorf("detail must preserve the raw message verbatim: got %q", got.Detail)
	}
}

func TestClassify_LogsTakePriorityOverMessage(t *testing.T) {
	// Evidence in the logs is more specific than the generic message.
	got := ledgererr.Classify(&ledgererr.SubmissionError{
		Message: "Transaction simulation failed",
		Logs:    []string{"Program log: Error: BasketInactive"},
	})
	if got.Category != ledgererr.CategoryOperationsDisabled {
		t.Errorf("got %s, want OperationsDisabled", got.Category)
	}
}

func TestClassify_NilError(t *testing.T) {
	got := ledgererr.Classify(nil)
	if got.Category != ledgererr.CategoryUnclassified {
		t.Errorf("nil error: got %s, want Unclassified", got.Category)
	}
}
