package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
)

// Error categories for fatal session failures. Neither is retried here:
// a rejected token will not become valid by retrying, and transient
// transport conditions are already retried inside discordgo.
var (
	// ErrAuthentication means the token was rejected. Exit code 3.
	ErrAuthentication = errors.New("invalid bot token")

	// ErrConnectivity means Discord could not be reached.
	ErrConnectivity = errors.New("cannot reach Discord")
)

// Gateway close code sent when identify fails due to bad credentials.
const closeCodeAuthenticationFailed = 4004

// Classify maps an error from opening the session to one of the fatal
// categories.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == closeCodeAuthenticationFailed {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if IsStatus(err, http.StatusUnauthorized) || errors.Is(err, discordgo.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	return fmt.Errorf("%w: %v", ErrConnectivity, err)
}

// IsStatus reports whether err is a Discord REST error with the given
// HTTP status code.
func IsStatus(err error, code int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == code
}
