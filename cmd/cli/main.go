// Command fk is a CLI client for the FreshKeep service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/RamanVasko/freshkeep/internal/client"
	"github.com/RamanVasko/freshkeep/internal/config"
	"github.com/RamanVasko/freshkeep/internal/credstore"
	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/RamanVasko/freshkeep/internal/session"
	"github.com/RamanVasko/freshkeep/internal/store"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `fk CLI
Usage:
  fk [-server URL] <cmd> [args]

Commands:
  version
  register   -u <username> -e <email> -p <password>
  login      -u <username> -p <password>           (saves tokens)
  logout
  whoami
  list
  expiring
  add        -name <name> -exp <YYYY-MM-DD> [-category <uuid>] [-barcode <code>]
             [-shop <name>] [-purchased <YYYY-MM-DD>] [-amount <n>] [-unit <u>]
             [-notes <text>] [-image <file>]
  edit       -id <uuid> [same flags as add, only given ones change]
  rm         -id <uuid>
  scan       -barcode <code>
  categories
`)
	os.Exit(2)
}

// app bundles the client core for command handlers.
type app struct {
	sess  *session.Manager
	store *store.Store
}

func newApp(serverURL string) *app {
	api := client.New(serverURL)
	creds := credstore.NewFileStore(credstore.DefaultDir())
	sess := session.New(api, creds)
	return &app{sess: sess, store: store.New(api, sess)}
}

// restore loads the persisted session; commands that need auth call it first.
func (a *app) restore(ctx context.Context) {
	if st, _ := a.sess.Restore(ctx); st != session.StatusAuthenticated {
		fail(fmt.Errorf("not logged in: %s", a.sess.LastError()))
	}
}

// main dispatches subcommands.
func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fail(err)
	}

	server := flag.String("server", cfg.ServerURL, "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := newApp(*server)

	switch cmd {

	case "version":
		fmt.Printf("fk %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *e == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u, -e and -p")
			os.Exit(1)
		}
		user, err := a.sess.Register(ctx, *u, *e, *p)
		if err != nil {
			fail(err)
		}
		fmt.Println(user.ID)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		if _, err := a.sess.Login(ctx, *u, *p); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "logout":
		// best-effort: erase local tokens even when the session is stale
		_, _ = a.sess.Restore(ctx)
		a.sess.Logout(ctx)
		fmt.Println("ok")

	case "whoami":
		a.restore(ctx)
		printJSON(a.sess.User())

	case "list":
		a.restore(ctx)
		products, err := a.store.ListAll(ctx)
		if err != nil {
			fail(err)
		}
		printProducts(products)

	case "expiring":
		a.restore(ctx)
		products, err := a.store.ListExpiring(ctx)
		if err != nil {
			fail(err)
		}
		printProducts(products)

	case "add":
		draft, err := draftFromArgs(args)
		if err != nil {
			fail(err)
		}
		a.restore(ctx)
		p, err := a.store.Create(ctx, draft)
		if err != nil {
			fail(err)
		}
		printJSON(p)

	case "edit":
		id, patch, err := patchFromArgs(args)
		if err != nil {
			fail(err)
		}
		a.restore(ctx)
		p, err := a.store.Update(ctx, id, patch)
		if err != nil {
			fail(err)
		}
		printJSON(p)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		idStr := fs.String("id", "", "product id (uuid)")
		_ = fs.Parse(args)
		id, err := uuid.FromString(*idStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "need -id (uuid)")
			os.Exit(1)
		}
		a.restore(ctx)
		if err := a.store.Delete(ctx, id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "scan":
		fs := flag.NewFlagSet("scan", flag.ExitOnError)
		code := fs.String("barcode", "", "barcode")
		_ = fs.Parse(args)
		if *code == "" {
			fmt.Fprintln(os.Stderr, "need -barcode")
			os.Exit(1)
		}
		a.restore(ctx)
		res, err := a.store.ScanBarcode(ctx, *code)
		if err != nil {
			fail(err)
		}
		printJSON(res)

	case "categories":
		a.restore(ctx)
		cats, err := a.store.ListCategories(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(cats)

	default:
		usage()
	}
}

// productFlags is the shared flag surface of add and edit.
type productFlags struct {
	fs        *flag.FlagSet
	name      *string
	exp       *string
	category  *string
	barcode   *string
	shop      *string
	purchased *string
	amount    *string
	unit      *string
	notes     *string
	image     *string
}

func newProductFlags(cmd string) *productFlags {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	return &productFlags{
		fs:        fs,
		name:      fs.String("name", "", "product name"),
		exp:       fs.String("exp", "", "expiration date (YYYY-MM-DD)"),
		category:  fs.String("category", "", "category id (uuid)"),
		barcode:   fs.String("barcode", "", "barcode"),
		shop:      fs.String("shop", "", "shop name"),
		purchased: fs.String("purchased", "", "purchase date (YYYY-MM-DD)"),
		amount:    fs.String("amount", "", "amount"),
		unit:      fs.String("unit", "", "unit"),
		notes:     fs.String("notes", "", "notes"),
		image:     fs.String("image", "", "image file (jpg/png)"),
	}
}

// draftFromArgs parses the add flags into a create draft.
func draftFromArgs(args []string) (model.ProductDraft, error) {
	f := newProductFlags("add")
	_ = f.fs.Parse(args)

	var d model.ProductDraft
	d.Name = *f.name
	d.Barcode = *f.barcode
	d.ShopName = *f.shop
	d.Unit = *f.unit
	d.Notes = *f.notes
	if *f.exp == "" {
		return d, fmt.Errorf("need -exp (YYYY-MM-DD)")
	}
	exp, err := model.ParseDate(*f.exp)
	if err != nil {
		return d, fmt.Errorf("bad -exp: %w", err)
	}
	d.ExpirationDate = exp
	if *f.category != "" {
		id, err := uuid.FromString(*f.category)
		if err != nil {
			return d, fmt.Errorf("bad -category: %w", err)
		}
		d.CategoryID = &id
	}
	if *f.purchased != "" {
		pd, err := model.ParseDate(*f.purchased)
		if err != nil {
			return d, fmt.Errorf("bad -purchased: %w", err)
		}
		d.PurchaseDate = pd
	}
	if *f.amount != "" {
		n, err := strconv.ParseFloat(*f.amount, 64)
		if err != nil {
			return d, fmt.Errorf("bad -amount: %w", err)
		}
		d.Amount = n
	}
	if *f.image != "" {
		data, err := os.ReadFile(*f.image)
		if err != nil {
			return d, err
		}
		d.Image = data
		d.ImageName = *f.image
	}
	return d, nil
}

// patchFromArgs parses the edit flags; only flags the user passed become part
// of the patch.
func patchFromArgs(args []string) (uuid.UUID, model.ProductPatch, error) {
	f := newProductFlags("edit")
	idStr := f.fs.String("id", "", "product id (uuid)")
	_ = f.fs.Parse(args)

	var p model.ProductPatch
	id, err := uuid.FromString(*idStr)
	if err != nil {
		return uuid.Nil, p, fmt.Errorf("need -id (uuid)")
	}

	set := map[string]bool{}
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["name"] {
		p.Name = f.name
	}
	if set["barcode"] {
		p.Barcode = f.barcode
	}
	if set["shop"] {
		p.ShopName = f.shop
	}
	if set["unit"] {
		p.Unit = f.unit
	}
	if set["notes"] {
		p.Notes = f.notes
	}
	if set["exp"] {
		exp, err := model.ParseDate(*f.exp)
		if err != nil {
			return uuid.Nil, p, fmt.Errorf("bad -exp: %w", err)
		}
		p.ExpirationDate = &exp
	}
	if set["purchased"] {
		pd, err := model.ParseDate(*f.purchased)
		if err != nil {
			return uuid.Nil, p, fmt.Errorf("bad -purchased: %w", err)
		}
		p.PurchaseDate = &pd
	}
	if set["category"] {
		cid, err := uuid.FromString(*f.category)
		if err != nil {
			return uuid.Nil, p, fmt.Errorf("bad -category: %w", err)
		}
		p.CategoryID = &cid
	}
	if set["amount"] {
		n, err := strconv.ParseFloat(*f.amount, 64)
		if err != nil {
			return uuid.Nil, p, fmt.Errorf("bad -amount: %w", err)
		}
		p.Amount = &n
	}
	if set["image"] {
		data, err := os.ReadFile(*f.image)
		if err != nil {
			return uuid.Nil, p, err
		}
		p.Image = data
		p.ImageName = *f.image
	}
	return id, p, nil
}

// ---- output helpers ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printProducts(products []model.Product) {
	if len(products) == 0 {
		fmt.Println("no products")
		return
	}
	for _, p := range products {
		marker := " "
		switch {
		case p.IsExpired:
			marker = "!"
		case p.IsNearExpiration:
			marker = "~"
		}
		fmt.Printf("%s %-36s %-24s exp=%s (%dd)\n",
			marker, p.ID, p.Name, p.ExpirationDate, p.DaysUntilExpiration)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
