package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const cookieName = "session"

type step struct {
	Name     string
	Method   string
	Path     string
	Body     interface{}
	Bearer   string
	Cookie   *http.Cookie
	Expected int
}

type result struct {
	Step     step
	Status   int
	Duration time.Duration
	Body     []byte
	Cookie   *http.Cookie
	Error    error
}

func (r result) ok() bool {
	return r.Error == nil && r.Status == r.Step.Expected
}

type signInBody struct {
	Token string `json:"token"`
}

func main() {
	var (
		base    string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8000", "Identity API base URL")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	username := lettersOnly("smoke_" + uuid.NewString()[:8])
	password := "Smoke-pass-" + uuid.NewString()[:4] + "1!"
	credentials := map[string]string{"username": username, "password": password}

	var results []result
	run := func(s step) result {
		res := perform(client, base, s)
		results = append(results, res)
		return res
	}
	finish := func() {
		printReport(results)
		for _, r := range results {
			if !r.ok() {
				os.Exit(1)
			}
		}
	}

	run(step{Name: "signup", Method: http.MethodPost, Path: "/auth/signup", Expected: http.StatusOK, Body: map[string]string{
		"username":      username,
		"password":      password,
		"passwordCheck": password,
	}})

	signin := run(step{Name: "signin", Method: http.MethodPost, Path: "/auth/signin", Body: credentials, Expected: http.StatusOK})
	if !signin.ok() || signin.Cookie == nil {
		finish()
		return
	}
	access := tokenFrom(signin.Body)
	first := signin.Cookie

	refresh := run(step{Name: "refresh", Method: http.MethodPost, Path: "/auth/refresh", Bearer: access, Cookie: first, Expected: http.StatusOK})
	if refresh.ok() {
		access = tokenFrom(refresh.Body)
	}

	run(step{Name: "reuse rotated cookie", Method: http.MethodPost, Path: "/auth/refresh", Bearer: access, Cookie: first, Expected: http.StatusUnauthorized})

	again := run(step{Name: "signin again", Method: http.MethodPost, Path: "/auth/signin", Body: credentials, Expected: http.StatusOK})
	if again.ok() && again.Cookie != nil {
		run(step{Name: "me", Method: http.MethodGet, Path: "/auth/me", Bearer: tokenFrom(again.Body), Expected: http.StatusOK})
		run(step{Name: "logout", Method: http.MethodPost, Path: "/auth/logout", Bearer: tokenFrom(again.Body), Cookie: again.Cookie, Expected: http.StatusNoContent})
	}

	finish()
}

// Usernames only allow letters and -_. so digits are mapped onto letters.
func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return 'a' + (r - '0')
		}
		return r
	}, s)
}

func tokenFrom(body []byte) string {
	var parsed signInBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("decode token: %v", err)
	}
	return parsed.Token
}

func perform(client *http.Client, base string, s step) result {
	res := result{Step: s}
	if client == nil {
		res.Error = errors.New("nil client")
		return res
	}

	var payload io.Reader
	if s.Body != nil {
		raw, err := json.Marshal(s.Body)
		if err != nil {
			res.Error = err
			return res
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(s.Method, strings.TrimRight(base, "/")+s.Path, payload)
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+s.Bearer)
	}
	if s.Cookie != nil {
		req.AddCookie(&http.Cookie{Name: s.Cookie.Name, Value: s.Cookie.Value})
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	res.Duration = time.Since(start)
	res.Status = resp.StatusCode

	res.Body, err = io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}
	for _, c := range resp.Cookies() {
		if c.Name == cookieName && c.MaxAge >= 0 && c.Value != "" {
			res.Cookie = c
		}
	}
	return res
}

func printReport(results []result) {
	fmt.Println("Auth Smoke Report")
	fmt.Println("=================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s (%s %s)\n", status, res.Step.Name, res.Step.Method, res.Step.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d, expected %d (%s)\n", res.Status, res.Step.Expected, res.Duration)
	}
}
