package domain

// Category groups message types by who may originate them.
type Category int

const (
	CategoryOther Category = iota
	CategoryChat
	CategoryMedia
	CategoryControl
)

func (c Category) String() string {
	switch c {
	case CategoryChat:
		return "chat"
	case CategoryMedia:
		return "media"
	case CategoryControl:
		return "control"
	default:
		return "other"
	}
}

// RateClass selects which per-session quota a message is counted against.
type RateClass int

const (
	RateGeneral RateClass = iota
	RateChat
	RateICE
)

func (r RateClass) String() string {
	switch r {
	case RateChat:
		return "chat"
	case RateICE:
		return "ice"
	default:
		return "general"
	}
}

const (
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeCandidate    = "candidate"
	TypeMediaOffer   = "media-offer"
	TypeMediaAnswer  = "media-answer"
	TypeChatMessage  = "chat-message"
	TypePing         = "ping"
	TypeWhoAmI       = "whoami"
	TypeError        = "error"
)

// Kind is the category and rate class of a message type, resolved once per message.
type Kind struct {
	Type     string
	Category Category
	Rate     RateClass
}

func KindOf(msgType string) Kind {
	k := Kind{Type: msgType}
	switch msgType {
	case TypeOffer, TypeAnswer, TypeMediaOffer, TypeMediaAnswer:
		k.Category = CategoryMedia
	case TypeICECandidate, TypeCandidate:
		k.Category, k.Rate = CategoryMedia, RateICE
	case TypeChatMessage:
		k.Category, k.Rate = CategoryChat, RateChat
	case TypePing, TypeWhoAmI:
		k.Category = CategoryControl
	}
	return k
}
