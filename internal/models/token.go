package models

// Token pair issued by the sequencer on authentication
type TokenPair struct {
	Access  string
	Refresh string
}
