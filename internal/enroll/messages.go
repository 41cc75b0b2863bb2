package enroll

import (
	"fmt"
	"strings"

	"face-enroll/internal/domain"
)

// UserMessage is the text shown to the person registering. The backend's own
// wording wins when it sent any, except for network and payload-size failures,
// where it is transport or proxy text.
func UserMessage(kind domain.ErrorKind, status int, serverMsg string) string {
	if msg := strings.TrimSpace(serverMsg); msg != "" && !genericOnly(kind) {
		return msg
	}
	switch kind {
	case domain.KindNone:
		return "Employee registered successfully."
	case domain.KindInvalidRequest:
		return "The registration details are incomplete. Check the form and the face photo."
	case domain.KindAuth:
		return "Your session has expired. Please log in again."
	case domain.KindNoFaceDetected:
		return "No face was detected in the photo. Retake it with the face clearly visible."
	case domain.KindMultipleFacesDetected:
		return "More than one face was detected. Make sure only the employee is in the photo."
	case domain.KindPayloadTooLarge:
		return "The photo is too large to upload, even after compression. Please retake it."
	case domain.KindNetworkError:
		return "Could not reach the server. Check the connection and try again."
	case domain.KindServerRejected:
		if status > 0 {
			return fmt.Sprintf("The server rejected the registration (HTTP %d).", status)
		}
		return "The server rejected the registration."
	}
	return "Registration failed."
}

func genericOnly(kind domain.ErrorKind) bool {
	return kind == domain.KindNetworkError || kind == domain.KindPayloadTooLarge
}
