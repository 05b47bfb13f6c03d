// bmsctl is a terminal front end for the duplicate-customer workflow: it
// registers a customer against a running server, running the same
// search-confirm-create sequence the dashboard performs.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"motobms/internal/client"
	"motobms/internal/flow"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		printUsage()
		return
	}

	_ = godotenv.Load()
	baseURL := os.Getenv("BMS_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	api := client.New(baseURL)
	ctx := context.Background()

	loginID := os.Getenv("BMS_LOGIN")
	password := os.Getenv("BMS_PASSWORD")
	if loginID == "" {
		fmt.Fprintln(os.Stderr, "BMS_LOGIN and BMS_PASSWORD must be set")
		os.Exit(1)
	}
	if err := api.Login(ctx, loginID, password); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "new-customer":
		err = cmdNewCustomer(ctx, api)
	case "similar":
		err = cmdSimilar(ctx, api, os.Args[2:])
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flow.ErrCancelled) {
			fmt.Println("cancelled, nothing created")
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`usage: bmsctl <command>

commands:
  new-customer   interactively register a customer (with duplicate check)
  similar        run a similarity search: bmsctl similar [name] [phone] [email]
  help           show this message

environment: BMS_URL (default http://localhost:8080), BMS_LOGIN, BMS_PASSWORD`)
}

func cmdSimilar(ctx context.Context, api *client.Client, args []string) error {
	var q client.Query
	if len(args) > 0 {
		q.Name = args[0]
	}
	if len(args) > 1 {
		q.Phone = args[1]
	}
	if len(args) > 2 {
		q.Email = args[2]
	}
	if q.Empty() {
		return errors.New("give at least one of name, phone, email")
	}
	result, err := api.FindSimilar(ctx, q)
	if err != nil {
		return err
	}
	if !result.HasSimilar {
		fmt.Println("no similar customers")
		return nil
	}
	printCandidates(result.Candidates)
	return nil
}

func cmdNewCustomer(ctx context.Context, api *client.Client) error {
	session, err := api.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	in := bufio.NewReader(os.Stdin)
	ctrl := flow.NewCustomerFlow(api, &stdinResolver{api: api, in: in}, session)

	fmt.Println("new customer (empty line keeps a field blank)")
	err = ctrl.Edit(func(d *client.Draft) {
		d.Name = prompt(in, "name")
		d.Kana = prompt(in, "kana")
		d.Phone = prompt(in, "phone")
		d.MobilePhone = prompt(in, "mobile phone")
		d.Email = prompt(in, "email")
		d.PostalCode = prompt(in, "postal code")
		d.Address = prompt(in, "address")
	})
	if err != nil {
		return err
	}
	if ctrl.Draft().Name == "" {
		return errors.New("name is required")
	}

	id, err := ctrl.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created customer #%d\n", id)
	return nil
}

// stdinResolver is the terminal stand-in for the similarity dialogs: list
// the candidates, let the operator inspect one, then confirm, go back,
// create new anyway, or cancel.
type stdinResolver struct {
	api *client.Client
	in  *bufio.Reader
}

func (r *stdinResolver) Resolve(ctx context.Context, candidates []client.Candidate) (flow.Decision, error) {
	for {
		fmt.Printf("\nfound %d similar customer(s):\n", len(candidates))
		printCandidates(candidates)
		fmt.Println("enter a number to inspect, 'n' to create new anyway, 'c' to cancel")
		choice := prompt(r.in, "choice")
		switch choice {
		case "c", "cancel":
			return flow.Decision{Kind: flow.DecisionCancel}, nil
		case "n", "new":
			return flow.Decision{Kind: flow.DecisionCreateNew}, nil
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(candidates) {
			fmt.Println("invalid choice")
			continue
		}
		cand := candidates[idx-1]
		detail, err := r.api.GetCustomer(ctx, cand.ID)
		if err != nil {
			return flow.Decision{}, fmt.Errorf("load candidate %d: %w", cand.ID, err)
		}
		fmt.Printf("\n#%d %s (%s)\n  phone: %s / %s\n  email: %s\n  address: %s %s\n",
			detail.ID, detail.Name, detail.Kana,
			detail.Phone, detail.MobilePhone, detail.Email,
			detail.PostalCode, detail.Address)
		fmt.Println("'y' to use this customer, 'b' to go back, 'c' to cancel")
		switch prompt(r.in, "confirm") {
		case "y", "yes":
			return flow.Decision{Kind: flow.DecisionUseExisting, CustomerID: cand.ID}, nil
		case "c", "cancel":
			return flow.Decision{Kind: flow.DecisionCancel}, nil
		}
		// back: re-show the same list, no re-query
	}
}

func printCandidates(candidates []client.Candidate) {
	for i, cand := range candidates {
		fmt.Printf("  %d) #%d %s  phone=%s email=%s score=%d [%s]\n",
			i+1, cand.ID, cand.Name, cand.Phone, cand.Email, cand.Score,
			strings.Join(cand.Reasons, ","))
	}
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
