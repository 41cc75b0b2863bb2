package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"face-enroll/internal/batch"
	"face-enroll/internal/domain"
)

// Keep header order EXACT: operators filter this file to re-run failures.
var outcomeHeader = []string{
	"ROW",
	"NAME",
	"ID_CARD_NUMBER",
	"ROLE",
	"PHOTO",
	"STATUS",
	"EMPLOYEE_ID",
	"ERROR_KIND",
	"HTTP_STATUS",
	"NETWORK_CALLS",
	"LAST_STEP",
	"MESSAGE",
}

// WriteOutcomesCSV writes one row per batch item, in manifest order.
func WriteOutcomesCSV(w io.Writer, items []batch.Item) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(outcomeHeader); err != nil {
		return err
	}
	for i, it := range items {
		if err := cw.Write(toOutcomeRow(i+1, it)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toOutcomeRow(n int, it batch.Item) []string {
	status := "ok"
	if it.Err != nil {
		status = "failed"
	}

	var employeeID, kind, httpStatus, calls, step, msg string
	if o := it.Outcome; o != nil {
		employeeID = o.EmployeeID
		kind = string(o.ErrorKind)
		if o.StatusCode > 0 {
			httpStatus = strconv.Itoa(o.StatusCode)
		}
		calls = strconv.Itoa(o.NetworkCalls())
		step = lastStep(o.Attempts)
		msg = o.UserMessage
	} else if it.Err != nil {
		// never started
		status = "skipped"
		msg = it.Err.Error()
	}

	return []string{
		strconv.Itoa(n),         // ROW
		it.Request.Name,         // NAME
		it.Request.IDCardNumber, // ID_CARD_NUMBER
		string(it.Request.Role), // ROLE
		it.Request.FacePhoto,    // PHOTO
		status,                  // STATUS
		employeeID,              // EMPLOYEE_ID
		kind,                    // ERROR_KIND
		httpStatus,              // HTTP_STATUS
		calls,                   // NETWORK_CALLS
		step,                    // LAST_STEP
		oneLine(msg),            // MESSAGE
	}
}

func lastStep(attempts []domain.UploadAttempt) string {
	last := ""
	for _, a := range attempts {
		if a.Outcome != domain.AttemptPending {
			last = a.Label
		}
	}
	return last
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
