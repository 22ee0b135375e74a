package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docdesk/internal/app"
	"docdesk/internal/config"
	"docdesk/internal/desk"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newApp loads the config and creates a DeskApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddDocuments", "Share").
func newApp(operation string, launchLinks bool) (*app.DeskApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewDeskApp(cfg, operation, app.NewLinkPrinter(os.Stdout, launchLinks))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "docdesk",
	Short:        "Document registry and sharing client",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init ENDPOINT_URL FOLDER_ID",
	Short: "Initialize configuration",
	Long:  "Initialize configuration for the scripting endpoint at ENDPOINT_URL. Attachments are uploaded into the drive folder FOLDER_ID.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(args[0], args[1], defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Endpoint: %s\n", cfg.Endpoint.URL)
		fmt.Printf("Upload Folder: %s\n", cfg.Upload.FolderID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := config.ApplyEnv(cfg); err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Endpoint: %s %s\n", cfg.Endpoint.Type, cfg.Endpoint.URL)
		fmt.Printf("Sheets:   login=%q documents=%q master=%q share_log=%q\n",
			cfg.Sheets.Login, cfg.Sheets.Documents, cfg.Sheets.Master, cfg.Sheets.ShareLog)
		fmt.Printf("Upload:   %s (pacing %s)\n", cfg.Upload.Type, cfg.Upload.Pacing)
		fmt.Printf("Store:    %s %s\n", cfg.Store.Type, cfg.Store.DataDir)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nProblem:  %v\n", err)
		}
		return nil
	},
}

// session commands
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		var err error
		if username == "" {
			if username, err = prompt("Username: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = promptPassword("Password: "); err != nil {
				return err
			}
		}

		a, err := newApp("Login", false)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s (%s)\n", user.Name, user.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Logout", false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("WhoAmI", false)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.CurrentUser()
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s) role=%s\n", user.Name, user.Username, user.Role)
		fmt.Printf("permissions: %s\n", strings.Join(user.Permissions, ", "))
		return nil
	},
}

// doc command
var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents",
}

var docAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register documents",
	Long: "Register one document from flags, or up to 10 from a workbook with --from.\n" +
		"Dates are entered as yyyy-mm-dd.",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")

		a, err := newApp("AddDocuments", false)
		if err != nil {
			return err
		}
		defer a.Close()

		var entries []desk.Entry
		if from != "" {
			if entries, err = a.ImportEntries(from); err != nil {
				return err
			}
		} else {
			e, err := entryFromFlags(cmd)
			if err != nil {
				return err
			}
			entries = []desk.Entry{e}
		}

		res, err := a.AddDocuments(cmd.Context(), entries)
		if res != nil {
			printSubmitResult(res)
		}
		if err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}
		return nil
	},
}

func entryFromFlags(cmd *cobra.Command) (desk.Entry, error) {
	f := cmd.Flags()
	get := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	renewal, _ := f.GetBool("renewal")

	e := desk.Entry{
		Name:         get("name"),
		Type:         get("type"),
		Category:     get("category"),
		PersonName:   get("person"),
		NeedsRenewal: renewal,
		RenewalDate:  get("renewal-date"),
		IssueDate:    get("issue-date"),
		ContactName:  get("contact-name"),
		ContactEmail: get("contact-email"),
		ContactPhone: get("contact-phone"),
		CompanyName:  get("company"),
	}
	if path := get("file"); path != "" {
		att, err := desk.LoadAttachment(path)
		if err != nil {
			return desk.Entry{}, err
		}
		e.Attachment = att
	}
	return e, nil
}

func printSubmitResult(res *desk.SubmitResult) {
	for _, d := range res.Saved {
		fmt.Printf("saved  %-8s %s\n", d.SerialNo, d.Name)
	}
	for _, f := range res.UploadFailures {
		fmt.Printf("warning: file for entry %d was not uploaded: %v\n", f.Index+1, f.Err)
	}
	for _, m := range res.NewMasterData {
		fmt.Printf("new master data: %s / %s / %s\n", m.CompanyName, m.DocumentType, m.Category)
	}
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListDocuments", false)
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.ListDocuments()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents cached. Run 'docdesk doc sync'.")
			return nil
		}
		for _, d := range docs {
			renewal := ""
			if d.NeedsRenewal {
				renewal = "renew " + d.RenewalDate
			}
			fmt.Printf("%-8s  %-30s  %-15s  %-10s  %s\n", d.SerialNo, d.Name, d.Type, d.Status, renewal)
		}
		return nil
	},
}

var docSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local cache from the sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Sync", false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Printf("Cached %d document(s) and %d master entr(ies)\n", res.Documents, res.MasterData)
		return nil
	},
}

var docRenewalsCmd = &cobra.Command{
	Use:   "renewals",
	Short: "List documents due for renewal",
	RunE: func(cmd *cobra.Command, args []string) error {
		within, _ := cmd.Flags().GetDuration("within")

		a, err := newApp("Renewals", false)
		if err != nil {
			return err
		}
		defer a.Close()

		due, err := a.Renewals(within)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			fmt.Println("Nothing due.")
			return nil
		}
		for _, r := range due {
			when := fmt.Sprintf("in %d day(s)", r.DaysLeft)
			switch {
			case r.DaysLeft < 0:
				when = fmt.Sprintf("overdue by %d day(s)", -r.DaysLeft)
			case r.DaysLeft == 0:
				when = "today"
			}
			fmt.Printf("%-8s  %-30s  %s  %s\n", r.Document.SerialNo, r.Document.Name, r.DueAt.Format("02/01/2006"), when)
		}
		return nil
	},
}

var docExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export cached documents to an .xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Export", false)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ExportDocuments(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d document(s) to %s\n", n, args[0])
		return nil
	},
}

// master command
var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Company, type and category picklists",
}

var masterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached master data",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MasterData", false)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.MasterData()
		if err != nil {
			return err
		}
		for _, m := range entries {
			fmt.Printf("%-30s  %-20s  %s\n", m.CompanyName, m.DocumentType, m.Category)
		}
		return nil
	},
}

// share command
var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share documents by email and/or WhatsApp",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		serials, _ := f.GetStringSlice("serial")
		email, _ := f.GetString("email")
		phone, _ := f.GetString("phone")
		name, _ := f.GetString("name")
		note, _ := f.GetString("note")
		whatsapp, _ := f.GetBool("whatsapp")
		launch, _ := f.GetBool("open")

		a, err := newApp("Share", launch)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Share(cmd.Context(), app.ShareInput{
			Serials:   serials,
			Recipient: desk.Recipient{Name: name, Email: email, Phone: phone},
			Email:     email != "",
			WhatsApp:  whatsapp,
			Note:      note,
		})
		if err != nil {
			return err
		}

		if res.EmailSent {
			fmt.Printf("Email sent to %s\n", email)
		} else if res.EmailErr != nil {
			fmt.Printf("warning: email not sent: %v\n", res.EmailErr)
		}
		fmt.Printf("Recorded %d share(s)\n", len(res.Records))
		return nil
	},
}

var shareHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "View share history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("ShareHistory", false)
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.ShareHistory(limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("Nothing shared yet.")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("%s  %s  %-8s  %-8s  %-25s  %s\n",
				r.ID, r.SharedAt.Format("2006-01-02 15:04"), r.Method, r.DocumentSerial, r.Contact, r.DocumentName)
		}
		return nil
	},
}

// ops command
var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("Operations", false)
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.Operations(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		for _, op := range ops {
			duration := ""
			if !op.FinishedAt.IsZero() {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Name,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label)
	}
	fmt.Print(label)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// session
	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")

	// doc subcommands
	docCmd.AddCommand(docAddCmd)
	docAddCmd.Flags().String("from", "", "Read entries from an .xlsx workbook")
	docAddCmd.Flags().String("name", "", "Document name")
	docAddCmd.Flags().String("type", "", "Document type")
	docAddCmd.Flags().String("category", "", "Category")
	docAddCmd.Flags().String("person", "", "Person name")
	docAddCmd.Flags().Bool("renewal", false, "Document needs renewal")
	docAddCmd.Flags().String("renewal-date", "", "Renewal date (yyyy-mm-dd)")
	docAddCmd.Flags().String("issue-date", "", "Issue date (yyyy-mm-dd)")
	docAddCmd.Flags().String("contact-name", "", "Concerned person")
	docAddCmd.Flags().String("contact-email", "", "Concerned person's email")
	docAddCmd.Flags().String("contact-phone", "", "Concerned person's phone")
	docAddCmd.Flags().String("company", "", "Company name")
	docAddCmd.Flags().String("file", "", "Attachment to upload")
	docCmd.AddCommand(docListCmd)
	docCmd.AddCommand(docSyncCmd)
	docCmd.AddCommand(docRenewalsCmd)
	docRenewalsCmd.Flags().Duration("within", 30*24*time.Hour, "Window ahead of today")
	docCmd.AddCommand(docExportCmd)

	masterCmd.AddCommand(masterListCmd)

	shareCmd.Flags().StringSliceP("serial", "s", nil, "Serial number(s) to share")
	shareCmd.Flags().String("email", "", "Recipient email; sends an email when set")
	shareCmd.Flags().String("phone", "", "Recipient phone for WhatsApp")
	shareCmd.Flags().String("name", "", "Recipient name")
	shareCmd.Flags().String("note", "", "Message to include")
	shareCmd.Flags().Bool("whatsapp", false, "Share through a WhatsApp link")
	shareCmd.Flags().Bool("open", false, "Open the WhatsApp link in the browser")
	shareCmd.AddCommand(shareHistoryCmd)
	shareHistoryCmd.Flags().IntP("limit", "n", 50, "Maximum number of records to show")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(masterCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(opsCmd)
	opsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
