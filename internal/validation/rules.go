package validation

import "github.com/diagnosis/formrelay/internal/domain"

const (
	MsgName             = "Please enter your full name (at least 2 characters)."
	MsgEmail            = "Please enter a valid email address."
	MsgMessage          = "Please enter a message between 10 and 1000 characters."
	MsgServiceInterest  = "Please select which service you're interested in."
	MsgBringsYouHere    = "Please tell us more about what brings you here (at least 10 characters)."
	MsgHopeToAchieve    = "Please tell us what you hope to achieve (at least 10 characters)."
	MsgBiggestChallenge = "Please describe your biggest challenge (at least 10 characters)."
	MsgStartTimeline    = "Please select when you'd like to start."
	MsgBestTime         = "Please select the best time to reach you."
	MsgContactMethod    = "Please select your preferred contact method."
)

const (
	nameMinLength    = 2
	messageMinLength = 10
	messageMaxLength = 1000
	answerMinLength  = 10
)

func ruleTable(opts Options) map[domain.FormType][]Rule {
	common := []Rule{
		{Field: domain.FieldName, Required: true, MinLength: nameMinLength, Message: MsgName},
		{Field: domain.FieldEmail, Required: true, Email: true, Message: MsgEmail},
	}

	contact := append(append([]Rule{}, common...),
		Rule{Field: domain.FieldMessage, Required: true, MinLength: messageMinLength, MaxLength: messageMaxLength, Message: MsgMessage},
	)

	answer := func(field, msg string) Rule {
		return Rule{Field: field, Required: true, MinLength: answerMinLength, MaxLength: opts.IntakeTextMaxLength, Message: msg}
	}
	choice := func(field, msg string) Rule {
		return Rule{Field: field, Required: true, Message: msg}
	}
	intake := append(append([]Rule{}, common...),
		choice(domain.FieldServiceInterest, MsgServiceInterest),
		answer(domain.FieldBringsYouHere, MsgBringsYouHere),
		answer(domain.FieldHopeToAchieve, MsgHopeToAchieve),
		answer(domain.FieldBiggestChallenge, MsgBiggestChallenge),
		choice(domain.FieldStartTimeline, MsgStartTimeline),
		choice(domain.FieldBestTime, MsgBestTime),
		choice(domain.FieldContactMethod, MsgContactMethod),
	)

	return map[domain.FormType][]Rule{
		domain.FormContact: contact,
		domain.FormIntake:  intake,
	}
}
