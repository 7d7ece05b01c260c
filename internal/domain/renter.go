package domain

import "time"

// Renter is the identity record behind a reservation. Renters are keyed by
// their license number: the first reservation creates the record together
// with the uploaded identity/license documents, later reservations reuse it.
type Renter struct {
	ID            int32     `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	IdentityDoc   string    `json:"identity_doc"`
	LicenseDoc    string    `json:"license_doc"`
	CreatedOn     time.Time `json:"created_on"`
	UpdatedOn     time.Time `json:"updated_on"`
}
