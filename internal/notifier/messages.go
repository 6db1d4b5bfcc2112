package notifier

import (
	"fmt"
	"strconv"
)

func seconds(evt Event) string {
	return strconv.FormatFloat(evt.Timeout.Seconds(), 'f', -1, 64)
}

// ChatText is the message posted to the chat channel.
func ChatText(evt Event) string {
	if evt.Kind == KindResolved {
		return fmt.Sprintf("%s has been closed again.", evt.Name)
	}
	return fmt.Sprintf("%s has been open for more than %s seconds.", evt.Name, seconds(evt))
}

// SpeechText is the phrase spoken in the room.
func SpeechText(evt Event) string {
	if evt.Kind == KindResolved {
		return fmt.Sprintf("Thank you for closing %s.", evt.Name)
	}
	return fmt.Sprintf("Close the %s you dunce.", evt.Name)
}
