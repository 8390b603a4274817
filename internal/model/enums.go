package model

// Status marks whether the last fetch for an entity produced data.
type Status int8

const (
	StatusOkay Status = 0
	StatusFail Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusOkay:
		return "OKAY"
	case StatusFail:
		return "FAIL"
	}
	return "UNKNOWN"
}

type TriggerStatus int8

const (
	TriggerWait  TriggerStatus = 0
	TriggerRun   TriggerStatus = 1
	TriggerError TriggerStatus = 2
)

func (s TriggerStatus) String() string {
	switch s {
	case TriggerWait:
		return "WAIT"
	case TriggerRun:
		return "RUN"
	case TriggerError:
		return "ERROR"
	}
	return "UNKNOWN"
}

type MediaType int8

const (
	MediaImage MediaType = 0
	MediaVideo MediaType = 1
	MediaText  MediaType = 2
)

func (t MediaType) String() string {
	switch t {
	case MediaImage:
		return "IMAGE"
	case MediaVideo:
		return "VIDEO"
	case MediaText:
		return "TEXT"
	}
	return "UNKNOWN"
}
