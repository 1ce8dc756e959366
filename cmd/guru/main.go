// Command guru is the terminal client for the Guru-IT portal. It keeps the
// session in a per-user state file, so commands behave like screens in the
// web client: log in once, then check in and out through the day.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"guruit/internal/portal"
	"guruit/internal/session"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp()
	if err != nil {
		log.Fatalf("guru: %v", err)
	}

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("guru: %v", err)
	}
}

type app struct {
	store   *session.Store
	checkIn *session.CheckInState
	api     *portal.Client
}

func newApp() (*app, error) {
	baseURL := os.Getenv("GURUIT_API_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}

	statePath := os.Getenv("GURUIT_STATE_FILE")
	if statePath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		statePath = filepath.Join(configDir, "guruit", "session.json")
	}
	storage, err := session.NewFileStorage(statePath)
	if err != nil {
		return nil, err
	}

	api := portal.NewClient(baseURL)
	store := session.NewStore(storage, api)
	store.Restore()
	checkIn := session.NewCheckInState(storage, api)
	checkIn.Load()

	return &app{store: store, checkIn: checkIn, api: api}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.store.Logout()
		fmt.Println("logged out")
		return nil
	case "status":
		return a.status(ctx)
	case "checkin":
		return a.doCheckIn(ctx)
	case "checkout":
		return a.doCheckOut(ctx)
	case "assignment":
		return a.assignment(ctx)
	case "admin":
		return a.admin(ctx, args)
	case "routes":
		for _, path := range session.Routes() {
			fmt.Println(path)
		}
		return nil
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "full name")
	regNo := fs.String("reg-no", "", "registration number")
	level := fs.String("level", "", "study level")
	school := fs.String("school", "", "school")
	department := fs.String("department", "", "department")
	track := fs.String("track", "", "internship track")
	role := fs.String("role", "", "account role (user or admin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := a.store.Register(ctx, portal.Profile{
		Email:      *email,
		Password:   *password,
		Name:       *name,
		RegNo:      *regNo,
		Level:      *level,
		School:     *school,
		Department: *department,
		Track:      *track,
		Role:       *role,
	})
	if err != nil {
		return err
	}
	fmt.Printf("account created, next stop %s\n", target)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := a.store.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	user := a.store.User()
	if user != nil {
		fmt.Printf("welcome back %s, next stop %s\n", user.Name, target)
	} else {
		fmt.Printf("logged in, next stop %s\n", target)
	}
	return nil
}

func (a *app) status(ctx context.Context) error {
	if !a.store.IsAuthenticated() {
		fmt.Println("logged out")
		return nil
	}
	if err := a.checkIn.Reconcile(ctx); err != nil {
		// Offline or backend down: report the local snapshot.
		fmt.Printf("(could not reach the server, showing local state: %v)\n", err)
	}
	if user := a.store.User(); user != nil {
		fmt.Printf("logged in as %s (%s, %s track, role %s)\n", user.Name, user.RegNo, user.Track, user.Role)
	} else {
		fmt.Println("logged in")
	}
	if a.checkIn.IsCheckedIn() {
		at, _ := a.checkIn.CheckInTime()
		fmt.Printf("checked in since %s (%s, status %s)\n", at.Local().Format("15:04"), a.checkIn.Elapsed(), a.checkIn.Status())
	} else {
		fmt.Println("not checked in")
	}
	return nil
}

func (a *app) doCheckIn(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	user := a.store.User()
	if user == nil {
		return fmt.Errorf("no cached profile, log in again")
	}
	// Pick up a check-in made from another device before trying to open one.
	if err := a.checkIn.Reconcile(ctx); err != nil {
		return err
	}
	if err := a.checkIn.CheckIn(ctx, *user); err != nil {
		return err
	}
	fmt.Printf("checked in, status %s\n", a.checkIn.Status())
	return nil
}

func (a *app) doCheckOut(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	elapsed := a.checkIn.Elapsed()
	if err := a.checkIn.CheckOut(ctx); err != nil {
		return err
	}
	fmt.Printf("checked out after %s\n", elapsed)
	return nil
}

func (a *app) assignment(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	assignment, err := a.api.CurrentAssignment(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s [%s]\n", assignment.Title, assignment.Track)
	if assignment.Description != "" {
		fmt.Println(assignment.Description)
	}
	if assignment.DueDate != "" {
		fmt.Printf("due %s\n", assignment.DueDate)
	}
	if assignment.FileName != "" {
		fmt.Printf("attachment: %s\n", assignment.FileName)
	}
	return nil
}

func (a *app) admin(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("admin needs a subcommand: users, checkins, approve, reject, attendance, assignments, upload")
	}

	switch args[0] {
	case "users":
		fs := flag.NewFlagSet("admin users", flag.ExitOnError)
		track := fs.String("track", "", "filter by track")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		users, err := a.api.ListUsers(ctx, *track)
		if err != nil {
			return err
		}
		for _, user := range users {
			fmt.Printf("%s\t%s\t%s\t%s\n", user.RegNo, user.Name, user.Track, user.Role)
		}
		return nil

	case "checkins":
		checkIns, err := a.api.ListPendingCheckIns(ctx)
		if err != nil {
			return err
		}
		for _, checkIn := range checkIns {
			fmt.Printf("%s\t%s\t%s\t%s\n", checkIn.ID, checkIn.Name, checkIn.CheckInTime, checkIn.Status)
		}
		return nil

	case "approve", "reject":
		if len(args) < 2 {
			return fmt.Errorf("admin %s needs a check-in id", args[0])
		}
		status := "approved"
		if args[0] == "reject" {
			status = "rejected"
		}
		if err := a.api.UpdateCheckInStatus(ctx, args[1], status); err != nil {
			return err
		}
		fmt.Printf("check-in %s %s\n", args[1], status)
		return nil

	case "attendance":
		fs := flag.NewFlagSet("admin attendance", flag.ExitOnError)
		date := fs.String("date", "", "day to report, YYYY-MM-DD (default today)")
		csvOut := fs.String("csv", "", "write CSV export to this file instead")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *csvOut != "" {
			out, err := os.Create(*csvOut)
			if err != nil {
				return err
			}
			defer out.Close()
			if err := a.api.AttendanceCSV(ctx, *date, out); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", *csvOut)
			return nil
		}
		records, err := a.api.AttendanceByDate(ctx, *date)
		if err != nil {
			return err
		}
		for _, record := range records {
			total := record.TotalTime
			if total == "" {
				total = "open"
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", record.Name, record.RegNo, record.Status, total)
		}
		return nil

	case "assignments":
		assignments, err := a.api.ListAssignments(ctx)
		if err != nil {
			return err
		}
		for _, assignment := range assignments {
			fmt.Printf("%s\t%s\t%s\n", assignment.ID, assignment.Title, assignment.Track)
		}
		return nil

	case "upload":
		fs := flag.NewFlagSet("admin upload", flag.ExitOnError)
		title := fs.String("title", "", "assignment title")
		description := fs.String("description", "", "assignment description")
		track := fs.String("track", "", "target track")
		group := fs.Bool("group", false, "group assignment")
		members := fs.String("members", "", "comma-separated group members")
		due := fs.String("due", "", "due date, YYYY-MM-DD")
		file := fs.String("file", "", "attachment path")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		draft := portal.AssignmentDraft{
			Title:       *title,
			Description: *description,
			Track:       *track,
			IsGroup:     *group,
			DueDate:     *due,
			FilePath:    *file,
		}
		if *members != "" {
			draft.GroupMembers = strings.Split(*members, ",")
		}
		uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		assignment, err := a.api.CreateAssignment(uploadCtx, draft)
		if err != nil {
			return err
		}
		fmt.Printf("assignment %s posted for %s\n", assignment.ID, assignment.Track)
		return nil

	default:
		return fmt.Errorf("unknown admin subcommand %q", args[0])
	}
}

func (a *app) requireAuth() error {
	if !a.store.IsAuthenticated() {
		return fmt.Errorf("not logged in, run guru login first")
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: guru <command> [flags]

  signup      create an account and log in
  login       log in with email and password
  logout      clear the stored session
  status      show session and today's check-in
  checkin     open today's attendance session
  checkout    close today's attendance session
  assignment  show the current assignment for your track
  admin       users | checkins | approve <id> | reject <id> | attendance | assignments | upload
  routes      list the portal's screen paths`)
}
