// Command operator is an interactive REPL for the exchange's admin HTTP
// surface: start/end the trading session and inspect state/leaderboard.
// Grounded on cmd/client/client.go's flag-driven shape, adapted from a
// one-shot CLI into a bufio.Scanner-driven loop since the admin surface
// is now HTTP rather than a raw TCP protocol.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:3000", "address of the exchange HTTP server")
	flag.Parse()

	fmt.Printf("connected to %s\n", *addr)
	fmt.Println("commands: start | end | state <user_id> | board | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "start":
			post(*addr + "/api/admin/start")
		case "end":
			post(*addr + "/api/admin/end")
		case "status":
			get(*addr + "/api/admin/status")
		case "state":
			if len(fields) != 2 {
				fmt.Println("usage: state <user_id>")
				continue
			}
			get(*addr + "/api/state/" + fields[1])
		case "board":
			get(*addr + "/api/leaderboard")
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}

func post(url string) {
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printResponse(resp)
}

func get(url string) {
	resp, err := http.Get(url)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println("error reading response:", err)
		return
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}
