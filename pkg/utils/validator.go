package utils

import (
	"fmt"
	"regexp"
)

var (
	// transactionCodeRegex matches office codes like "ZS-00417-3F9A"
	transactionCodeRegex = regexp.MustCompile(`^[A-Z]{2,4}-\d{5}-[0-9A-F]{4}$`)

	// billingTaxCodeRegex matches an RFC, the Mexican federal tax code
	billingTaxCodeRegex = regexp.MustCompile(`^[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}$`)

	receiptNoRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-]{2,31}$`)
)

// ValidateTransactionCode validates an office transaction code
func ValidateTransactionCode(code string) error {
	if !transactionCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid transaction code format: %s", code)
	}
	return nil
}

// ValidateBillingTaxCode validates the requester's RFC for invoicing
func ValidateBillingTaxCode(rfc string) error {
	if !billingTaxCodeRegex.MatchString(rfc) {
		return fmt.Errorf("invalid billing tax code: %s", rfc)
	}
	return nil
}

// ValidateReceiptNo validates a treasury receipt number
func ValidateReceiptNo(receiptNo string) error {
	if !receiptNoRegex.MatchString(receiptNo) {
		return fmt.Errorf("invalid receipt number format: %s", receiptNo)
	}
	return nil
}
