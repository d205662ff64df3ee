package engine

type ActionType string

const (
	ActPlayCard      ActionType = "play_card"
	ActCallTruco     ActionType = "call_truco"
	ActRespondTruco  ActionType = "respond_truco"
	ActCallEnvido    ActionType = "call_envido"
	ActRespondEnvido ActionType = "respond_envido"
	ActFold          ActionType = "fold"
)

// Action is a player move. The set of implementations is closed to this package.
type Action interface {
	Type() ActionType
	Actor() string
	isAction()
}

type PlayCard struct {
	UserID string
	Card   Card
}

type CallTruco struct {
	UserID string
}

type RespondTruco struct {
	UserID string
	Accept bool
}

type CallEnvido struct {
	UserID string
	Level  EnvidoLevel
}

type RespondEnvido struct {
	UserID string
	Accept bool
}

type Fold struct {
	UserID string
}

func (PlayCard) Type() ActionType      { return ActPlayCard }
func (CallTruco) Type() ActionType     { return ActCallTruco }
func (RespondTruco) Type() ActionType  { return ActRespondTruco }
func (CallEnvido) Type() ActionType    { return ActCallEnvido }
func (RespondEnvido) Type() ActionType { return ActRespondEnvido }
func (Fold) Type() ActionType          { return ActFold }

func (a PlayCard) Actor() string      { return a.UserID }
func (a CallTruco) Actor() string     { return a.UserID }
func (a RespondTruco) Actor() string  { return a.UserID }
func (a CallEnvido) Actor() string    { return a.UserID }
func (a RespondEnvido) Actor() string { return a.UserID }
func (a Fold) Actor() string          { return a.UserID }

func (PlayCard) isAction()      {}
func (CallTruco) isAction()     {}
func (RespondTruco) isAction()  {}
func (CallEnvido) isAction()    {}
func (RespondEnvido) isAction() {}
func (Fold) isAction()          {}
