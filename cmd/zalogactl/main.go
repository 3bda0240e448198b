package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/erazemk/zaloga/internal/client"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/stock"
)

const usage = `Usage: zalogactl [-server URL] [-token TOKEN] <command> [args]

Commands:
  register -u <name> -p <password> [-name <full name>]
  login -u <name> -p <password>      print a session token
  logout                             revoke the token
  items                              list the catalog
  low-stock                          list items below their minimum
  create-item -name <name> [-min N] [-stock N] [-image ref]
  delete-item <id>                   remove an item with no stock
  goods-in <id>=<qty>...             receive stock
  goods-out -to <receiver> <id>=<qty>...
  report                             list goods-out records
  delete-record <id>                 delete a goods-out record (needs token)
  receivers                          list known receivers
  issues                             list issue reports
  report-issue -title <t> -desc <d> [-status open]

The server URL and token default to ZALOGA_URL and ZALOGA_TOKEN.
`

// cli holds what every command needs.
type cli struct {
	api   *client.Client
	clerk *stock.Clerk
	out   io.Writer
}

func main() {
	fs := flag.NewFlagSet("zalogactl", flag.ContinueOnError)
	serverURL := fs.String("server", envOr("ZALOGA_URL", "http://localhost:8080"), "")
	token := fs.String("token", os.Getenv("ZALOGA_TOKEN"), "")
	timeout := fs.Duration("timeout", 30*time.Second, "")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	api := client.New(*serverURL, nil)
	api.SetToken(*token)
	c := &cli{api: api, clerk: stock.NewClerk(api, 0), out: os.Stdout}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := c.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return c.cmdRegister(ctx, args)
	case "login":
		return c.cmdLogin(ctx, args)
	case "logout":
		return c.api.Logout(ctx)
	case "items":
		items, _, err := c.api.Items(ctx)
		if err != nil {
			return err
		}
		c.printItems(items)
		return nil
	case "low-stock":
		items, err := c.api.LowStock(ctx)
		if err != nil {
			return err
		}
		c.printItems(items)
		return nil
	case "create-item":
		return c.cmdCreateItem(ctx, args)
	case "delete-item":
		id, err := singleID(args)
		if err != nil {
			return err
		}
		return c.clerk.DeleteItem(ctx, id)
	case "goods-in":
		return c.cmdGoodsIn(ctx, args)
	case "goods-out":
		return c.cmdGoodsOut(ctx, args)
	case "report":
		return c.cmdReport(ctx)
	case "delete-record":
		id, err := singleID(args)
		if err != nil {
			return err
		}
		return c.api.DeleteGoodsOut(ctx, id)
	case "receivers":
		receivers, err := c.api.Receivers(ctx)
		if err != nil {
			return err
		}
		for _, r := range receivers {
			fmt.Fprintln(c.out, r)
		}
		return nil
	case "issues":
		return c.cmdIssues(ctx)
	case "report-issue":
		return c.cmdReportIssue(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *cli) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var reg model.Registration
	fs.StringVar(&reg.Username, "u", "", "username")
	fs.StringVar(&reg.Password, "p", "", "password")
	fs.StringVar(&reg.FullName, "name", "", "full name")
	fs.StringVar(&reg.Hint1, "hint1", "", "first password hint")
	fs.StringVar(&reg.Hint2, "hint2", "", "second password hint")
	fs.StringVar(&reg.ImageURL, "image", "", "profile image reference")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := c.api.Register(ctx, reg); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registered %s\n", reg.Username)
	return nil
}

func (c *cli) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	res, err := c.api.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, res.Token)
	return nil
}

func (c *cli) cmdCreateItem(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-item", flag.ContinueOnError)
	name := fs.String("name", "", "item name")
	minStock := fs.Int("min", 0, "minimum stock")
	initial := fs.Int("stock", 0, "initial stock")
	image := fs.String("image", "", "image reference")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	item, err := c.clerk.CreateItem(ctx, *name, *minStock, *initial, *image)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created item %d (%s)\n", item.ID, item.Name)
	return nil
}

func (c *cli) cmdGoodsIn(ctx context.Context, args []string) error {
	lines, err := parseLines(args)
	if err != nil {
		return err
	}
	var b stock.GoodsInBasket
	for _, l := range lines {
		if err := b.Add(l.ItemID, l.Quantity); err != nil {
			return err
		}
	}
	if _, err := c.clerk.GoodsIn(ctx, &b); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Received %d line(s)\n", len(lines))
	return nil
}

func (c *cli) cmdGoodsOut(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("goods-out", flag.ContinueOnError)
	receiver := fs.String("to", "", "receiver")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	lines, err := parseLines(fs.Args())
	if err != nil {
		return err
	}

	catalog, err := c.clerk.Catalog(ctx)
	if err != nil {
		return err
	}
	var b stock.GoodsOutBasket
	for _, l := range lines {
		if err := b.AddChecked(catalog, l.ItemID, l.Quantity); err != nil {
			return err
		}
	}

	rec, err := c.clerk.GoodsOut(ctx, *receiver, &b)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Recorded goods out %d to %s\n", rec.ID, rec.Receiver)
	return nil
}

func (c *cli) cmdReport(ctx context.Context) error {
	records, err := c.api.GoodsOut(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tRECEIVER\tITEMS")
	for _, r := range records {
		parts := make([]string, len(r.Items))
		for i, l := range r.Items {
			parts[i] = fmt.Sprintf("%s x%d", l.Name, l.Quantity)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Date.Local().Format("2006-01-02 15:04"), r.Receiver, strings.Join(parts, ", "))
	}
	return tw.Flush()
}

func (c *cli) cmdIssues(ctx context.Context) error {
	issues, err := c.api.Issues(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tTITLE")
	for _, i := range issues {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i.ID, i.CreatedAt, i.Status, i.Title)
	}
	return tw.Flush()
}

func (c *cli) cmdReportIssue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report-issue", flag.ContinueOnError)
	title := fs.String("title", "", "short title")
	desc := fs.String("desc", "", "description")
	status := fs.String("status", model.IssueStatusOpen, "status")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	issue, err := c.api.CreateIssue(ctx, model.IssueRecord{
		Title:       *title,
		Description: *desc,
		Status:      *status,
		CreatedAt:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Reported issue %d\n", issue.ID)
	return nil
}

func (c *cli) printItems(items []model.Item) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTOCK\tMIN\t")
	for _, item := range items {
		mark := ""
		if item.LowStock() {
			mark = "LOW"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", item.ID, item.Name, item.Stock, item.MinStock, mark)
	}
	tw.Flush()
}

// parseLines parses "id=qty" arguments.
func parseLines(args []string) ([]model.StockLine, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: expected at least one <id>=<qty>", errUsage)
	}
	lines := make([]model.StockLine, 0, len(args))
	for _, arg := range args {
		idStr, qtyStr, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not <id>=<qty>", errUsage, arg)
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid item id %q", errUsage, idStr)
		}
		qty, err := stock.ParseQuantity(qtyStr)
		if err != nil {
			return nil, err
		}
		lines = append(lines, model.StockLine{ItemID: id, Quantity: qty})
	}
	return lines, nil
}

func singleID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected one id", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, args[0])
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
