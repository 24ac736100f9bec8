package report

type Category struct {
	Label       string
	SubtypeMenu *Menu
	// whether the reporter is asked for free-text context after choosing a sub-type
	AskAdditionalInfo bool
}

var categoryMenu = numberedMenu(
	"Please choose the category of disinformation that best describes your reason for reporting",
	"False/misleading information",
	"Harassment and Bullying",
	"Fraud and Scams",
	"Violent and Harmful content",
)

var categories = map[string]Category{
	"1": {
		Label: "False/misleading information",
		SubtypeMenu: numberedMenu("What type of false/misleading information does the message fall under?",
			"Quoting out of context",
			"Exaggerated claims",
			"Selective Reporting",
		),
		AskAdditionalInfo: true,
	},
	"2": {
		Label: "Harassment and Bullying",
		SubtypeMenu: numberedMenu("What type of harassment/bullying does the message fall under?",
			"Sexual Harassment",
			"Doxxing",
			"Stalking",
			"Threat or Personal Attack",
		),
	},
	"3": {
		Label: "Fraud and Scams",
		SubtypeMenu: numberedMenu("What type of fraud/scam does the message fall under?",
			"Phishing",
			"Identity Fraud",
			"Product Scam",
			"Fake/Bot Account",
		),
	},
	"4": {
		Label: "Violent and Harmful content",
		SubtypeMenu: numberedMenu("Please report how the content was violent or harmful.",
			"Graphic Violence",
			"Child Exploitation",
			"Terrorist Content",
			"Non-Consensual Explicit Content",
		),
	},
}

var confirmMessageMenu = &Menu{
	Title: "Is this the message you want to report?",
	Options: []Option{
		{Key: "1", Label: "Yes, this is the message"},
		{Key: "2", Label: "No, let me paste a different link"},
	},
	Footer: "Ex: To confirm, type `1`.",
}

var additionalInfoMenu = &Menu{
	Title: "Would you be able to provide additional information about this disinformation?",
	Options: []Option{
		{Key: "1", Label: "Yes. I have additional information to provide"},
		{Key: "2", Label: "No. I do not have additional information to provide"},
	},
	Footer: "Ex: To provide additional information, type `1`.",
}

var blockMenu = numberedMenu("Would you like to limit your exposure to the author of this message?",
	"Block the author",
	"Mute the author",
	"Hide this message only",
	"Take no further action",
)

var threatMenu = &Menu{
	Title: "Does the reported content pose an imminent threat to anyone's safety?",
	Options: []Option{
		{Key: "1", Label: "Yes, escalate to emergency response"},
		{Key: "2", Label: "No"},
	},
}

var disinfoMenu = &Menu{
	Title: "Is the reported content disinformation?",
	Options: []Option{
		{Key: "1", Label: "Yes"},
		{Key: "2", Label: "No, the report is unfounded"},
		{Key: "3", Label: "Uncertain, escalate to a higher-level moderator"},
	},
}

var modCategoryMenu = numberedMenu("Which kind of disinformation is it?",
	"Conspiracy theory",
	"Fabricated information",
	"Misleading information",
	"Imposter content",
	"Other",
)

var actorMenu = numberedMenu("Who appears to be behind the content?",
	"An individual user",
	"A coordinated campaign",
	"A state-affiliated actor",
	"An automated or bot account",
)

type Action string

const (
	ActionRemoveContent    Action = "remove-content"
	ActionRemoveAndSuspend Action = "remove-and-suspend"
	ActionRemoveAndBan     Action = "remove-and-ban"
	ActionWarnAuthor       Action = "warn-author"
)

var actionMenu = numberedMenu("What action should be taken?",
	"Remove the content",
	"Remove the content and temporarily suspend the author",
	"Remove the content and permanently ban the author",
	"Keep the content and warn the author",
)

var actionsByKey = map[string]Action{
	"1": ActionRemoveContent,
	"2": ActionRemoveAndSuspend,
	"3": ActionRemoveAndBan,
	"4": ActionWarnAuthor,
}

// RemovesContent reports whether the action deletes the flagged message.
func (a Action) RemovesContent() bool {
	return a == ActionRemoveContent || a == ActionRemoveAndSuspend || a == ActionRemoveAndBan
}
