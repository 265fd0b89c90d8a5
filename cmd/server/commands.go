package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timtanatarov/daydi-spa/internal/auth"
	"github.com/timtanatarov/daydi-spa/internal/contactform"
)

var (
	initRange   string
	initHeaders []string

	submitName     string
	submitEmail    string
	submitPhone    string
	submitTelegram string
	submitEndpoint string

	plainToken string
)

// initSheetCmd initializes a sheet without going through the HTTP API.
var initSheetCmd = &cobra.Command{
	Use:   "init-sheet",
	Short: "Write the header row and formatting to a sheet",
	Long: `Writes the header labels into row 1 of the sheet and applies the header
formatting in one batch. Without flags the configured range and headers
are used.

Example:
  server init-sheet --range "Leads!A1" --headers "Created,Name,Email,Phone,Telegram"`,
	Args: cobra.NoArgs,
	RunE: runInitSheet,
}

// submitCmd drives the contact form against a running server.
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate and submit a contact form",
	Long: `Applies the contact form rules to the given values and posts them to
the contact endpoint:
  - email is lower-cased and filtered to address characters
  - phone keeps its 10 significant digits and is sent as +7XXXXXXXXXX
  - telegram is sent with a single leading @`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

// hashTokenCmd prints a token for POST /sheets/init and its bcrypt hash.
var hashTokenCmd = &cobra.Command{
	Use:   "hash-token",
	Short: "Generate an init token and its bcrypt hash",
	Long: `Prints a bearer token for POST /sheets/init together with the bcrypt
hash to put into server.init_token_hash (or INIT_TOKEN_HASH). Pass
--token to hash an existing value instead of generating one.`,
	Args: cobra.NoArgs,
	RunE: runHashToken,
}

func init() {
	initSheetCmd.Flags().StringVar(&initRange, "range", "", "target range, e.g. Leads!A1 (default: configured range)")
	initSheetCmd.Flags().StringSliceVar(&initHeaders, "headers", nil, "five comma separated header labels")

	submitCmd.Flags().StringVar(&submitName, "name", "", "contact name")
	submitCmd.Flags().StringVar(&submitEmail, "email", "", "email address")
	submitCmd.Flags().StringVar(&submitPhone, "phone", "", "phone number")
	submitCmd.Flags().StringVar(&submitTelegram, "telegram", "", "telegram username")
	submitCmd.Flags().StringVar(&submitEndpoint, "endpoint", "", "contact endpoint (default: the configured server address)")

	hashTokenCmd.Flags().StringVar(&plainToken, "token", "", "token to hash instead of generating one")
}

func runInitSheet(cmd *cobra.Command, args []string) error {
	client, err := newSheetClient(cfg, logger)
	if err != nil {
		return err
	}
	if err := client.InitSheet(cmd.Context(), initHeaders, initRange); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Sheet initialized.")
	return nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	form := &contactform.Form{}
	form.SetName(submitName)
	form.SetEmail(submitEmail)
	form.SetHandle(submitTelegram)
	form.Phone.Input(submitPhone, false)

	endpoint := submitEndpoint
	if endpoint == "" {
		endpoint = localEndpoint(cfg.Server.Addr)
	}
	s := &contactform.Submitter{Endpoint: endpoint, Log: logger}
	if err := s.Submit(cmd.Context(), form); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Form sent.")
	return nil
}

// localEndpoint returns the contact URL of a server listening on addr.
func localEndpoint(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return contactform.DefaultEndpoint
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/contact"
}

func runHashToken(cmd *cobra.Command, args []string) error {
	token := strings.TrimSpace(plainToken)
	var hash string
	var err error
	if token == "" {
		token, hash, err = auth.GenerateToken()
	} else {
		hash, err = auth.HashToken(token)
	}
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "token: %s\n", token)
	fmt.Fprintf(out, "hash:  %s\n", hash)
	fmt.Fprintln(out, "Set server.init_token_hash (or INIT_TOKEN_HASH) to the hash and send")
	fmt.Fprintln(out, "\"Authorization: Bearer <token>\" to POST /sheets/init.")
	return nil
}
