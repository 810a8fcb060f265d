package model

import "time"

// Organization is a kindergarten whose members may trade with each other.
// Listings are only visible inside the organization they were created in.
// Organizations are maintained by staff and cannot be deleted while users
// or listings reference them.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – official name of the kindergarten.
//  EnrollmentCode – unique code handed out to parents for sign-up.
//  ZipCode        – postal code, hyphenated (e.g. 123-4567).
//  Prefecture     – prefecture name.
//  Address        – address after the prefecture.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Organization struct {
	ID             uint64    // organizations.id
	Name           string    // organizations.name
	EnrollmentCode string    // organizations.enrollment_code
	ZipCode        string    // organizations.zip_code
	Prefecture     string    // organizations.prefecture
	Address        string    // organizations.address
	CreatedAt      time.Time // organizations.created_at
	UpdatedAt      time.Time // organizations.updated_at
}
