package registration

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	MinTeamSize = 1
	MaxTeamSize = 3
)

// Messages returned to the submitter.
const (
	MsgMissingFields         = "All fields are required"
	MsgTeamSizeRange         = "Team size must be between 1 and 3"
	MsgParticipantsMalformed = "Invalid participants data format"
	MsgParticipantCount      = "Invalid participants data"
	MsgParticipantIncomplete = "All details for the first participant are required"
	MsgAttachmentMissing     = "Payment screenshot is required"
	MsgInvalidStatus         = "Invalid status. Must be one of: pending, approved, rejected"
	MsgUnsupportedMediaType  = "Only image files and PDFs are allowed"
	MsgRegistrationNotFound  = "Registration not found"
	MsgPaymentProofNotStored = "Payment screenshot not found"
)

// Submission is the raw form input of a registration request.
type Submission struct {
	TeamName     string
	TeamSize     string
	Participants string
	PortfolioURL string
	Attachment   *Attachment
}

// Validator checks submissions before they become registrations. It never
// touches the network or the store.
type Validator struct {
	// RequireLinks also demands linkedin and portfolio on the first participant.
	RequireLinks bool
}

// Validate applies the submission rules in order and returns the first failure.
// Only the first participant is checked field by field.
func (v Validator) Validate(sub Submission) (NewRegistration, error) {
	teamName := strings.TrimSpace(sub.TeamName)
	sizeRaw := strings.TrimSpace(sub.TeamSize)
	portfolio := strings.TrimSpace(sub.PortfolioURL)
	if teamName == "" || sizeRaw == "" || strings.TrimSpace(sub.Participants) == "" || portfolio == "" {
		return NewRegistration{}, Invalid(ErrMissingField, MsgMissingFields)
	}

	teamSize, err := strconv.Atoi(sizeRaw)
	if err != nil || teamSize < MinTeamSize || teamSize > MaxTeamSize {
		return NewRegistration{}, Invalid(ErrTeamSizeRange, MsgTeamSizeRange)
	}

	var participants []Participant
	if err := json.Unmarshal([]byte(sub.Participants), &participants); err != nil {
		return NewRegistration{}, Invalid(ErrParticipantsMalformed, MsgParticipantsMalformed)
	}
	if len(participants) != teamSize {
		return NewRegistration{}, Invalid(ErrParticipantCount, MsgParticipantCount)
	}

	if !v.complete(participants[0]) {
		return NewRegistration{}, Invalid(ErrParticipantIncomplete, MsgParticipantIncomplete)
	}

	if sub.Attachment == nil || len(sub.Attachment.Data) == 0 {
		return NewRegistration{}, Invalid(ErrAttachmentMissing, MsgAttachmentMissing)
	}

	return NewRegistration{
		TeamName:     teamName,
		TeamSize:     teamSize,
		Participants: participants,
		PortfolioURL: portfolio,
		Attachment:   sub.Attachment,
	}, nil
}

func (v Validator) complete(p Participant) bool {
	required := []string{p.Name, p.Email, p.Phone, p.College, p.DepartmentYear}
	if v.RequireLinks {
		required = append(required, p.LinkedIn, p.Portfolio)
	}
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}
