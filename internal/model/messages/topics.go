package messages

// Topic fissi su cui pubblica l'agente della sala.
const (
	TopicPresence    = "hospital/sala/presence"
	TopicTemperature = "hospital/sala/temperature"
	TopicHumidity    = "hospital/sala/humidity"
)

// Payload di presenza.
const (
	PresenceDetected = "1"
	PresenceNone     = "0"
)
