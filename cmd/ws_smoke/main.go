package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Smoke test for the room feed: authenticates two guests over HTTP, opens a
// tictactoe room, attaches both over websocket, marks ready and plays the
// opening move. Run against a live server.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// prefer IPv4 so localhost does not resolve to [::1]
	base := fmt.Sprintf("http://127.0.0.1:%s/api/v1", port)

	tokenA := auth(base, "SmokeA")
	tokenB := auth(base, "SmokeB")

	code := createRoom(base, tokenA, "tictactoe")
	log.Printf("room created: %s", code)

	join(base, tokenB, code)

	dialer := websocket.DefaultDialer
	wsURL := func(token string) string {
		return fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s&room=%s", port, token, code)
	}

	connA, _, err := dialer.Dial(wsURL(tokenA), nil)
	if err != nil {
		log.Fatalf("dial A: %v", err)
	}
	defer connA.Close()

	connB, _, err := dialer.Dial(wsURL(tokenB), nil)
	if err != nil {
		log.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	send := func(conn *websocket.Conn, frame string) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	send(connA, `{"type":"ready"}`)
	send(connB, `{"type":"ready"}`)

	// wait until the document reports playing, remembering its version
	version := waitForStatus(connA, "playing")
	drain(connB)

	move := fmt.Sprintf(`{"type":"move","payload":{"version":%d,"move":{"cell":4}}}`, version)
	send(connA, move)

	readFrame(connA, "A")
	readFrame(connB, "B")

	log.Println("smoke test finished")
}

func auth(base, name string) string {
	body, _ := json.Marshal(map[string]string{"display_name": name})
	resp, err := http.Post(base+"/auth", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("auth %s: %v", name, err)
	}
	defer resp.Body.Close()

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		log.Fatalf("auth %s: bad response (status %d)", name, resp.StatusCode)
	}
	return out.Token
}

func createRoom(base, token, game string) string {
	body, _ := json.Marshal(map[string]string{"game": game})
	var out struct {
		Room struct {
			Code string `json:"code"`
		} `json:"room"`
	}
	post(base+"/rooms", token, body, &out)
	if out.Room.Code == "" {
		log.Fatal("create room: empty code")
	}
	return out.Room.Code
}

func join(base, token, code string) {
	post(base+"/rooms/"+code+"/join", token, nil, nil)
}

func post(url, token string, body []byte, out any) {
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("POST %s: status %d", url, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("POST %s: decode: %v", url, err)
		}
	}
}

func waitForStatus(conn *websocket.Conn, status string) int64 {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			continue
		}
		var frame struct {
			Type    string `json:"type"`
			Payload struct {
				Room struct {
					Status string `json:"status"`
				} `json:"room"`
				Version int64 `json:"version"`
			} `json:"payload"`
		}
		if json.Unmarshal(msg, &frame) != nil {
			continue
		}
		if frame.Type == "state" && frame.Payload.Room.Status == status {
			return frame.Payload.Version
		}
	}
	log.Fatalf("never saw status %q", status)
	return 0
}

func drain(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func readFrame(conn *websocket.Conn, name string) {
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		log.Printf("%s read error: %v", name, err)
		return
	}
	log.Printf("%s got: %s", name, string(msg))
}
