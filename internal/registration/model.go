package registration

import "time"

// FeePerMember is the entry fee charged for each team member.
const FeePerMember = 50

// Status is the review state of a registration.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts only the known review states.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, true
	}
	return "", false
}

// Participant holds one team member's contact details.
type Participant struct {
	Name           string `json:"name" bson:"name"`
	Email          string `json:"email" bson:"email"`
	Phone          string `json:"phone" bson:"phone"`
	College        string `json:"college" bson:"college"`
	DepartmentYear string `json:"departmentYear" bson:"department_year"`
	LinkedIn       string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
	Portfolio      string `json:"portfolio,omitempty" bson:"portfolio,omitempty"`
}

// PaymentProof references the uploaded payment screenshot. Data is only set
// when the inline file backend stores the bytes on the record itself.
type PaymentProof struct {
	Filename     string `json:"filename" bson:"filename"`
	OriginalName string `json:"originalName" bson:"original_name"`
	Location     string `json:"location,omitempty" bson:"location,omitempty"`
	ContentType  string `json:"contentType" bson:"content_type"`
	Size         int64  `json:"size" bson:"size"`
	Inline       bool   `json:"inline" bson:"inline"`
	Data         []byte `json:"-" bson:"data,omitempty"`
}

// Registration is one team's accepted submission.
type Registration struct {
	ID                string        `json:"id" bson:"_id"`
	TeamName          string        `json:"teamName" bson:"team_name"`
	TeamSize          int           `json:"teamSize" bson:"team_size"`
	Participants      []Participant `json:"participants" bson:"participants"`
	PortfolioURL      string        `json:"portfolioUrl" bson:"portfolio_url"`
	PaymentScreenshot PaymentProof  `json:"paymentScreenshot" bson:"payment_screenshot"`
	EntryFee          int           `json:"entryFee" bson:"entry_fee"`
	RegistrationDate  time.Time     `json:"registrationDate" bson:"registration_date"`
	Status            Status        `json:"status" bson:"status"`
	// EmailSent is reserved for a notification integration; nothing sets it yet.
	EmailSent bool      `json:"emailSent" bson:"email_sent"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Summary is the subset echoed back to the submitter.
type Summary struct {
	ID               string    `json:"id"`
	TeamName         string    `json:"teamName"`
	TeamSize         int       `json:"teamSize"`
	EntryFee         int       `json:"entryFee"`
	Status           Status    `json:"status"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// Summary returns the fields safe to echo to the submitter.
func (r Registration) Summary() Summary {
	return Summary{
		ID:               r.ID,
		TeamName:         r.TeamName,
		TeamSize:         r.TeamSize,
		EntryFee:         r.EntryFee,
		Status:           r.Status,
		RegistrationDate: r.RegistrationDate,
	}
}

// EntryFeeFor computes the fee for a team of the given size.
func EntryFeeFor(teamSize int) int {
	return teamSize * FeePerMember
}

// Attachment is an uploaded file that passed media-type and size checks
// but has not been persisted yet.
type Attachment struct {
	OriginalName string
	ContentType  string
	Data         []byte
}

// Size returns the attachment length in bytes.
func (a *Attachment) Size() int64 {
	return int64(len(a.Data))
}

// NewRegistration is a validated submission ready to be persisted.
type NewRegistration struct {
	TeamName     string
	TeamSize     int
	Participants []Participant
	PortfolioURL string
	Attachment   *Attachment
}
