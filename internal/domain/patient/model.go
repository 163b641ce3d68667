package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. It is the read-only context source for
// request processing: bed placement, assigned staff, and clinical notes.
type Patient struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	HospitalID           string     `db:"hospital_id" json:"hospital_id"`
	Name                 string     `db:"name" json:"name"`
	Ward                 string     `db:"ward" json:"ward"`
	Room                 *string    `db:"room" json:"room,omitempty"`
	Bed                  *string    `db:"bed" json:"bed,omitempty"`
	PrimaryNurseID       *uuid.UUID `db:"primary_nurse_id" json:"primary_nurse_id,omitempty"`
	AttendingPhysicianID *uuid.UUID `db:"attending_physician_id" json:"attending_physician_id,omitempty"`
	Medications          []string   `db:"medications" json:"medications,omitempty"`
	Allergies            []string   `db:"allergies" json:"allergies,omitempty"`
	Restrictions         []string   `db:"restrictions" json:"restrictions,omitempty"`
	AdmittedAt           *time.Time `db:"admitted_at" json:"admitted_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}
