package application

const (
	SpeechHello         = "What can I do for you?"
	SpeechOK            = "Ok."
	SpeechHmm           = "Hmm."
	SpeechHelp          = "Try commands such as: on, off, mute, unmute, volume 2, input 3."
	SpeechVolumeError   = "Volume must be between 1 and 10."
	SpeechInputError    = "Input must be between 1 and 22."
	SpeechAlreadyOn     = "The receiver is already on."
	SpeechAlreadyOff    = "The receiver is already off."
	SpeechTurnPowerOn   = "The receiver is off. Turn it on first."
	SpeechResponseError = "Don't think it worked..."
)
