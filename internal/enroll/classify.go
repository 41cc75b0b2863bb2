package enroll

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"face-enroll/internal/domain"
	"face-enroll/internal/httpx"
)

const (
	codeNoFace        = "NO_FACE_DETECTED"
	codeMultipleFaces = "MULTIPLE_FACES"
)

var (
	machineCode   = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)
	noFaceText    = regexp.MustCompile(`(?i)no faces? detected`)
	multiFaceText = regexp.MustCompile(`(?i)multiple faces detected`)
	tooLargeText  = regexp.MustCompile(`(?i)request entity too large`)
)

// Classification is the reading of one backend response.
type Classification struct {
	Outcome    domain.AttemptOutcome
	Kind       domain.ErrorKind
	StatusCode int
	Code       string
	Message    string
	EmployeeID string
}

// Classify maps a response of the employee-creation endpoint to an attempt outcome.
//
// The face codes NO_FACE_DETECTED and MULTIPLE_FACES decide face errors on
// their own; without one of them the message text is matched. Payload-size
// rejections are recognised by status 413 or by the proxy's wording in any body.
func Classify(status int, body []byte) Classification {
	if status == http.StatusCreated {
		return Classification{
			Outcome:    domain.AttemptSuccess,
			StatusCode: status,
			EmployeeID: employeeIDFrom(body),
		}
	}

	apiErr := httpx.ParseAPIError(body)
	code := errorCode(apiErr)
	c := Classification{
		StatusCode: status,
		Code:       code,
		Message:    apiErr.Text(),
	}
	if code != "" && code == apiErr.Error {
		// A constant in "error" is not prose.
		c.Message = apiErr.Message
	}

	if status == http.StatusBadRequest {
		if kind := faceErrorKind(code, apiErr); kind != domain.KindNone {
			c.Outcome = domain.AttemptRejectedFace
			c.Kind = kind
			return c
		}
	}

	if status == http.StatusRequestEntityTooLarge || tooLargeText.Match(body) {
		c.Outcome = domain.AttemptRejectedTooLarge
		c.Kind = domain.KindPayloadTooLarge
		return c
	}

	c.Outcome = domain.AttemptRejectedOther
	c.Kind = domain.KindServerRejected
	return c
}

func faceErrorKind(code string, e httpx.APIError) domain.ErrorKind {
	// A face code decides; any other code still leaves the prose to match.
	switch code {
	case codeNoFace:
		return domain.KindNoFaceDetected
	case codeMultipleFaces:
		return domain.KindMultipleFacesDetected
	}

	text := e.Text()
	if text == "" {
		text = e.Raw
	}
	switch {
	case noFaceText.MatchString(text):
		return domain.KindNoFaceDetected
	case multiFaceText.MatchString(text):
		return domain.KindMultipleFacesDetected
	}
	return domain.KindNone
}

// errorCode prefers the explicit "code" field; "error" counts only when it
// looks like a constant rather than a sentence.
func errorCode(e httpx.APIError) string {
	if machineCode.MatchString(e.Code) {
		return e.Code
	}
	if machineCode.MatchString(e.Error) {
		return e.Error
	}
	return ""
}

// employeeIDFrom reads employeeId from the top level, or from an
// "employee" / "data" wrapper object.
func employeeIDFrom(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	if id := idValue(m["employeeId"]); id != "" {
		return id
	}
	for _, wrapper := range []string{"employee", "data"} {
		if inner, ok := m[wrapper].(map[string]any); ok {
			if id := idValue(inner["employeeId"]); id != "" {
				return id
			}
		}
	}
	return ""
}

func idValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
