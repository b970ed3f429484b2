package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarychdb/sarychdb/pkg/protocol"
)

// Person represents the structure of a document to insert
type Person struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
	City  string `json:"city"`
}

var cities = []string{"Lima", "Quito", "Bogota", "Santiago", "Caracas", "La Paz"}

// generateRandomName generates a random 6-letter name
func generateRandomName(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rng.Intn(len(letters))]
	}
	// Capitalize first letter
	name[0] = name[0] - 32
	return string(name)
}

// generatePerson builds a random document with an age between 18 and 99
func generatePerson(rng *rand.Rand) Person {
	name := generateRandomName(rng)
	return Person{
		Name:  name,
		Age:   rng.Intn(82) + 18,
		Email: fmt.Sprintf("%s@example.com", strings.ToLower(name)),
		City:  cities[rng.Intn(len(cities))],
	}
}

func postJSON(endpoint string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	return http.Post(endpoint, "application/json", bytes.NewBuffer(data))
}

// provision creates the account and database, tolerating ones that already exist
func provision(serverURL, username, password, database string) error {
	resp, err := postJSON(serverURL+"/api/users", map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("create user: unexpected status code: %d", resp.StatusCode)
	}

	resp, err = postJSON(serverURL+"/api/databases", map[string]string{
		"username": username,
		"password": password,
		"db_name":  database,
	})
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("create database: unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// send issues one sarychdb:// request
func send(serverURL string, req *protocol.Request, body interface{}) error {
	endpoint := serverURL + "/sarych?url=" + url.QueryEscape(req.URL())

	var resp *http.Response
	var err error
	if body != nil {
		resp, err = postJSON(endpoint, body)
	} else {
		resp, err = http.Get(endpoint)
	}
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func main() {
	var (
		numDocs     = flag.Int("n", 1000, "Number of documents to insert")
		serverURL   = flag.String("server", "http://localhost:3030", "Server base URL")
		username    = flag.String("user", "loadtest", "Account used for the run")
		password    = flag.String("password", "loadtest", "Account password")
		database    = flag.String("db", "people", "Database to write into")
		concurrency = flag.Int("concurrency", 4, "Concurrent clients")
		searches    = flag.Int("searches", 100, "Searches to run after the inserts")
	)
	flag.Parse()

	if *numDocs <= 0 || *concurrency <= 0 {
		fmt.Println("Error: -n and -concurrency must be greater than 0")
		os.Exit(1)
	}

	if err := provision(*serverURL, *username, *password, *database); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting load test: inserting %d documents to %s\n", *numDocs, *serverURL)
	fmt.Println("Press Ctrl+C to stop early")

	request := func(op string) *protocol.Request {
		return &protocol.Request{Username: *username, Password: *password, Database: *database, Operation: op}
	}

	// Track timing and statistics
	startTime := time.Now()
	var successCount, errorCount atomic.Int64
	reportInterval := int64(max(1, *numDocs/10))

	var g errgroup.Group
	g.SetLimit(*concurrency)
	for i := 0; i < *numDocs; i++ {
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		i := i
		g.Go(func() error {
			if err := send(*serverURL, request(protocol.OpPost), generatePerson(rng)); err != nil {
				errorCount.Add(1)
				fmt.Printf("Error inserting document %d: %v\n", i+1, err)
			} else {
				successCount.Add(1)
			}

			done := successCount.Load() + errorCount.Load()
			if done%reportInterval == 0 {
				rate := float64(done) / time.Since(startTime).Seconds()
				fmt.Printf("Progress: %d/%d documents - Rate: %.1f docs/sec\n", done, *numDocs, rate)
			}
			return nil
		})
	}
	_ = g.Wait()
	insertTime := time.Since(startTime)

	// Searches hit the result cache after the first pass over each city
	searchStart := time.Now()
	var searchErrors int
	for i := 0; i < *searches; i++ {
		req := request(protocol.OpGet)
		req.Query = cities[i%len(cities)]
		if err := send(*serverURL, req, nil); err != nil {
			searchErrors++
		}
	}
	searchTime := time.Since(searchStart)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Documents attempted:   %d\n", *numDocs)
	fmt.Printf("Successful inserts:    %d\n", successCount.Load())
	fmt.Printf("Failed inserts:        %d\n", errorCount.Load())
	fmt.Printf("Insert time:           %v\n", insertTime)
	fmt.Printf("Average insert rate:   %.2f docs/sec\n", float64(*numDocs)/insertTime.Seconds())
	if *searches > 0 {
		fmt.Printf("Searches run:          %d (%d failed)\n", *searches, searchErrors)
		fmt.Printf("Average search time:   %v\n", searchTime/time.Duration(*searches))
	}

	if errorCount.Load() > 0 || searchErrors > 0 {
		fmt.Printf("\nWarning: errors occurred during the load test\n")
		os.Exit(1)
	}

	fmt.Println("\nLoad test completed successfully!")
}
