// Command bookrace fires concurrent identical booking requests at a running
// server and verifies that exactly one succeeds. Run it against a staging
// environment to smoke-test the occupancy guarantee end to end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

type bookPayload struct {
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	MobileNumber    string `json:"mobile_number"`
}

type result struct {
	status int
	code   string
	err    error
}

func main() {
	var (
		base     string
		token    string
		doctorID string
		date     string
		start    string
		end      string
		workers  int
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&token, "token", "", "Patient access token")
	flag.StringVar(&doctorID, "doctor", "", "Doctor ID")
	flag.StringVar(&date, "date", "", "Appointment date (YYYY-MM-DD)")
	flag.StringVar(&start, "start", "", "Slot start (HH:MM)")
	flag.StringVar(&end, "end", "", "Slot end (HH:MM)")
	flag.IntVar(&workers, "workers", 8, "Concurrent booking attempts")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if doctorID == "" || date == "" || start == "" || end == "" {
		log.Fatal("doctor, date, start and end are required")
	}

	payload := bookPayload{
		DoctorID:        doctorID,
		AppointmentDate: date,
		StartTime:       start,
		EndTime:         end,
		FirstName:       "Race",
		LastName:        "Check",
		Email:           "bookrace@example.com",
		MobileNumber:    "+6280000000",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("failed to encode payload: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	results := make([]result, workers)
	var wg sync.WaitGroup
	gate := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-gate
			results[idx] = attempt(client, base, token, body)
		}(i)
	}
	close(gate)
	wg.Wait()

	var booked, taken, other int
	for _, r := range results {
		switch {
		case r.err != nil:
			other++
			fmt.Printf("error: %v\n", r.err)
		case r.status == http.StatusCreated:
			booked++
		case r.code == "SLOT_TAKEN":
			taken++
		default:
			other++
			fmt.Printf("unexpected response: status=%d code=%s\n", r.status, r.code)
		}
	}

	fmt.Printf("workers=%d booked=%d slot_taken=%d other=%d\n", workers, booked, taken, other)
	if booked != 1 || taken != workers-1 {
		fmt.Println("FAIL: expected exactly one successful booking")
		os.Exit(1)
	}
	fmt.Println("OK: occupancy guarantee held")
}

func attempt(client *http.Client, base, token string, body []byte) result {
	req, err := http.NewRequest(http.MethodPost, base+"/appointments", bytes.NewReader(body))
	if err != nil {
		return result{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{err: err}
	}
	defer resp.Body.Close()

	var envelope struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return result{status: resp.StatusCode}
	}
	code := ""
	if envelope.Error != nil {
		code = envelope.Error.Code
	}
	return result{status: resp.StatusCode, code: code}
}
