package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting Live Course API Smoke Test\n")

	// 1. Init session with the seeded default plan
	color.Yellow("\n1. Init Session")
	resp, body, err := sendRequest("POST", "/course/v1/session", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	var initRes struct {
		Data struct {
			SessionId string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &initRes); err != nil || initRes.Data.SessionId == "" {
		color.Red("Could not extract session id")
		os.Exit(1)
	}
	sid := initRes.Data.SessionId

	// 2. Step content generation once
	color.Yellow("\n2. Generate First Lesson")
	resp, body, _ = sendRequest("POST", "/course/v1/session/"+sid+"/next", nil)
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 3. Send a short question (should route CHAT_NOW and answer inline)
	color.Yellow("\n3. Send Short Question")
	resp, body, _ = sendRequest("POST", "/course/v1/session/"+sid+"/send", map[string]string{
		"text": "O que é um token?",
	})
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 4. Send a greeting (should be ignored by the heuristics)
	color.Yellow("\n4. Send Greeting")
	resp, body, _ = sendRequest("POST", "/course/v1/session/"+sid+"/send", map[string]string{
		"text": "Obrigado!",
	})
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 5. Pause, inspect state, resume
	color.Yellow("\n5. Pause / State / Resume")
	resp, body, _ = sendRequest("POST", "/course/v1/session/"+sid+"/pause", map[string]int{"duration_ms": 5000})
	color.Green("Pause: %s", resp.Status)
	prettyPrint(body)

	resp, body, _ = sendRequest("GET", "/course/v1/session/"+sid+"/state", nil)
	color.Green("State: %s", resp.Status)
	prettyPrint(body)

	resp, body, _ = sendRequest("POST", "/course/v1/session/"+sid+"/resume", nil)
	color.Green("Resume: %s", resp.Status)

	// 6. Metrics snapshot
	color.Yellow("\n6. Metrics")
	resp, body, _ = sendRequest("GET", "/course/v1/session/"+sid+"/metrics", nil)
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	color.Cyan("\n✅ Smoke test finished")
}
