package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

// DonorDTO is the donor half of the submission payload.
type DonorDTO struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	Address1         string `json:"address1,omitempty"`
	Address2         string `json:"address2,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	PostalCode       string `json:"postalCode,omitempty"`
	IsOrganization   bool   `json:"isOrganization"`
	OrganizationName string `json:"organizationName,omitempty"`
	DonorType        string `json:"donorType"`
}

// DonationDTO is the donation half of the submission payload.
//
// DonationAmt is the exact decimal rendered as a JSON number via
// json.RawMessage-safe string formatting; it never round-trips through a
// float on our side. DateOfDonation is ISO-8601.
type DonationDTO struct {
	DonationAmt    jsonDecimal `json:"donationAmt"`
	DonationType   string      `json:"donationType"`
	DateOfDonation string      `json:"dateOfDonation"`
	PaymentMode    string      `json:"paymentMode,omitempty"`
	ReferenceNo    string      `json:"referenceNo,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}

// SubmissionRequest is the wire request accepted by the donation receipt
// endpoint.
type SubmissionRequest struct {
	Donor    DonorDTO    `json:"donor"`
	Donation DonationDTO `json:"donation"`
}

// SubmissionResponse is the wire response on success.
type SubmissionResponse struct {
	DonorID              int64   `json:"donorId"`
	DonorReceiptDetailID int64   `json:"donorReceiptDetailId"`
	DonorFullName        string  `json:"donorFullName"`
	DonationAmt          float64 `json:"donationAmt"`
	DateOfDonation       string  `json:"dateOfDonation"`
}

// jsonDecimal renders a decimal string as a bare JSON number, keeping the
// exact digits the store holds.
type jsonDecimal string

// MarshalJSON implements json.Marshaler.
func (d jsonDecimal) MarshalJSON() ([]byte, error) {
	return []byte(d), nil
}

// UnmarshalJSON implements json.Unmarshaler. The number's digits are kept
// verbatim via json.Number, never parsed through a float.
func (d *jsonDecimal) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = jsonDecimal(n)
	return nil
}

// SplitName splits a free-form donor name into first/last for the remote
// schema:
//
//   - one token: used as both first and last name
//   - two tokens: first/last
//   - more: first token is the first name, the rest joined by spaces is
//     the last name
func SplitName(name string) (first, last string) {
	tokens := strings.Fields(donation.NormalizeName(name))
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], tokens[0]
	default:
		return tokens[0], strings.Join(tokens[1:], " ")
	}
}

// BuildSubmission translates a local record into the remote submission
// payload. Pure function, no I/O.
//
// ReferenceNo carries the record's payment reference - never the local
// receipt number. The two are distinct identifiers: the receipt number is
// our offline receipt, the payment reference is the check/transaction
// number the remote side reconciles payments with.
func BuildSubmission(rec *donation.Record) SubmissionRequest {
	first, last := SplitName(rec.DonorName)

	donorType := "Individual"
	if rec.IsOrganization {
		donorType = "Organization"
	}

	return SubmissionRequest{
		Donor: DonorDTO{
			FirstName:        first,
			LastName:         last,
			Phone:            rec.DonorPhone,
			Email:            rec.DonorEmail,
			Address1:         rec.Address1,
			Address2:         rec.Address2,
			City:             rec.City,
			State:            rec.State,
			Country:          rec.Country,
			PostalCode:       rec.PostalCode,
			IsOrganization:   rec.IsOrganization,
			OrganizationName: rec.OrganizationName,
			DonorType:        donorType,
		},
		Donation: DonationDTO{
			DonationAmt:    jsonDecimal(rec.Amount.Text('f')),
			DonationType:   rec.DonationType,
			DateOfDonation: rec.CreatedAt.UTC().Format(time.RFC3339),
			PaymentMode:    rec.PaymentMethod,
			ReferenceNo:    rec.PaymentReference,
			Notes:          rec.Notes,
		},
	}
}
