package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phenrril/orderdesk/internal/adapters/catalogapi"
	"github.com/phenrril/orderdesk/internal/composer"
	"github.com/phenrril/orderdesk/internal/domain"
	"github.com/phenrril/orderdesk/internal/formfield"
	"github.com/phenrril/orderdesk/internal/money"
)

const helpText = `commands:
  search <text>            search the catalog
  add <n> [v]              add result n, or its variant v
  toggle <n>               select or unselect result n
  variants <n>             list variants of result n
  qty <line> <n|+n|-n>     set or adjust a quantity
  price <line> <amount>    set a unit price
  change <line> <v>        switch a line to variant v of its product
  rm <line>                remove a line
  set <label>=<value>      fill a form field
  list                     show the order
  restore <orderId>        load the lines of a submitted order
  submit                   send the order
  quit`

type session struct {
	api      *catalogapi.Client
	formID   string
	out      io.Writer
	log      zerolog.Logger
	search   *composer.Search
	variants *composer.VariantCache
	order    *composer.Composer
	form     map[string]any
}

func newSession(api *catalogapi.Client, tenantID, formID string, maxProducts int, out io.Writer, log zerolog.Logger) *session {
	return &session{
		api:      api,
		formID:   formID,
		out:      out,
		log:      log,
		search:   composer.NewSearch(api, tenantID, 20),
		variants: composer.NewVariantCache(api, log),
		order:    composer.New(composer.WithMaxProducts(maxProducts)),
		form:     map[string]any{},
	}
}

// exec runs one command line. It reports quit=true on "quit".
func (s *session) exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "search", "s":
		err = s.doSearch(ctx, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])))
	case "add", "a":
		err = s.doAdd(ctx, args)
	case "toggle", "t":
		err = s.doToggle(ctx, args)
	case "variants", "v":
		err = s.doVariants(ctx, args)
	case "qty":
		err = s.doQty(args)
	case "price":
		err = s.doPrice(args)
	case "change":
		err = s.doChange(ctx, args)
	case "rm":
		err = s.doRemove(args)
	case "set":
		err = s.doSet(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])))
	case "list", "ls":
		s.printOrder()
	case "restore":
		err = s.doRestore(ctx, args)
	case "submit":
		err = s.doSubmit(ctx)
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	return false, err
}

func (s *session) doSearch(ctx context.Context, query string) error {
	products, applied, err := s.search.Run(ctx, query)
	if !applied {
		return nil
	}
	if err != nil {
		if domain.IsAuthFailure(err) {
			s.log.Warn().Err(err).Msg("catalog rejected credentials")
			return nil
		}
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(s.out, "no products found")
		return nil
	}
	for i, p := range products {
		mark := " "
		if s.order.HasProduct(p.ID.String()) {
			mark = "*"
		}
		extra := ""
		if p.HasVariants {
			extra = fmt.Sprintf("  (%d variants)", len(p.Variants))
		}
		fmt.Fprintf(s.out, "%s%2d. %-30s %12s%s\n", mark, i+1, p.Name, money.FormatRs(p.SalePrice()), extra)
	}
	return nil
}

func (s *session) result(arg string) (domain.Product, error) {
	n, err := strconv.Atoi(arg)
	results := s.search.Results()
	if err != nil || n < 1 || n > len(results) {
		return domain.Product{}, fmt.Errorf("no search result %q", arg)
	}
	return results[n-1], nil
}

func (s *session) productVariants(ctx context.Context, p domain.Product) []domain.Variant {
	if len(p.Variants) > 0 {
		return p.Variants
	}
	if cp, ok := s.variants.Resolve(ctx, p.ID.String(), p.Name); ok {
		return cp.Variants
	}
	return nil
}

func pickVariant(list []domain.Variant, arg string) (domain.Variant, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(list) {
		return domain.Variant{}, fmt.Errorf("no variant %q", arg)
	}
	return list[n-1], nil
}

func (s *session) doAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: add <n> [v]")
	}
	p, err := s.result(args[0])
	if err != nil {
		return err
	}
	var v *domain.Variant
	if len(args) > 1 {
		picked, err := pickVariant(s.productVariants(ctx, p), args[1])
		if err != nil {
			return err
		}
		v = &picked
	}
	if _, err := s.order.AddLine(p, v); err != nil {
		if errors.Is(err, domain.ErrVariantRequired) {
			s.printVariants(s.productVariants(ctx, p))
			return errors.New("pick a variant: add <n> <v>")
		}
		return err
	}
	s.printOrder()
	return nil
}

func (s *session) doToggle(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: toggle <n>")
	}
	p, err := s.result(args[0])
	if err != nil {
		return err
	}
	res, err := s.order.ToggleSelection(p)
	if err != nil {
		return err
	}
	if res == composer.NeedsVariant {
		s.printVariants(s.productVariants(ctx, p))
		return errors.New("pick a variant: add <n> <v>")
	}
	fmt.Fprintf(s.out, "%s %s\n", p.Name, res)
	s.printOrder()
	return nil
}

func (s *session) doVariants(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: variants <n>")
	}
	p, err := s.result(args[0])
	if err != nil {
		return err
	}
	s.printVariants(s.productVariants(ctx, p))
	return nil
}

func (s *session) printVariants(list []domain.Variant) {
	if len(list) == 0 {
		fmt.Fprintln(s.out, "no variants")
		return
	}
	for i, v := range list {
		fmt.Fprintf(s.out, "  %d. %s\n", i+1, v.Label())
	}
}

func (s *session) lineAt(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > s.order.Len() {
		return 0, fmt.Errorf("no line %q", arg)
	}
	return n - 1, nil
}

func (s *session) lineKey(arg string) (domain.LineKey, error) {
	i, err := s.lineAt(arg)
	if err != nil {
		return "", err
	}
	return s.order.Keys()[i], nil
}

func (s *session) doQty(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: qty <line> <n|+n|-n>")
	}
	key, err := s.lineKey(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("quantity %q is not a number", args[1])
	}
	if strings.HasPrefix(args[1], "+") || strings.HasPrefix(args[1], "-") {
		s.order.AdjustQuantity(key, n)
	} else {
		s.order.SetQuantity(key, n)
	}
	s.printOrder()
	return nil
}

func (s *session) doPrice(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: price <line> <amount>")
	}
	key, err := s.lineKey(args[0])
	if err != nil {
		return err
	}
	s.order.SetPrice(key, args[1])
	s.printOrder()
	return nil
}

func (s *session) doChange(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: change <line> <v>")
	}
	i, err := s.lineAt(args[0])
	if err != nil {
		return err
	}
	line := s.order.Lines()[i]
	p, ok := s.search.Find(line.ProductID)
	list := p.Variants
	if !ok || len(list) == 0 {
		cp, found := s.variants.Resolve(ctx, line.ProductID, line.Name)
		if !found {
			return fmt.Errorf("variants of %s are not available", line.Name)
		}
		list = cp.Variants
	}
	v, err := pickVariant(list, args[1])
	if err != nil {
		return err
	}
	if _, err := s.order.ChangeVariant(line, v); err != nil {
		return err
	}
	s.printOrder()
	return nil
}

func (s *session) doRemove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rm <line>")
	}
	key, err := s.lineKey(args[0])
	if err != nil {
		return err
	}
	s.order.RemoveLine(key)
	s.printOrder()
	return nil
}

func (s *session) doSet(arg string) error {
	label, value, ok := strings.Cut(arg, "=")
	label = strings.TrimSpace(label)
	if !ok || label == "" {
		return errors.New("usage: set <label>=<value>")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(s.form, label)
		return nil
	}
	s.form[label] = value
	fmt.Fprintf(s.out, "%s (%s) = %s\n", label, formfield.Infer(label), value)
	return nil
}

func (s *session) doRestore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: restore <orderId>")
	}
	lines, err := s.api.OrderLines(ctx, args[0])
	if err != nil {
		return err
	}
	s.variants.Prefetch(ctx, lines, func(productID string) bool {
		p, ok := s.search.Find(productID)
		return ok && len(p.Variants) > 0
	})
	if err := s.order.Restore(lines); err != nil {
		return err
	}
	s.printOrder()
	return nil
}

func (s *session) doSubmit(ctx context.Context) error {
	payload, err := composer.BuildPayload(s.order.Selection())
	if err != nil {
		return err
	}
	if len(payload.SelectedProducts) == 0 {
		return domain.ErrEmptySelection
	}
	req, err := payload.Encode(s.formID, s.form)
	if err != nil {
		return err
	}
	res, err := s.api.SubmitOrder(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "order %s submitted, total %s\n", res.Order.ID, money.FormatRs(res.Order.Total))
	s.order = composer.New(composer.WithMaxProducts(s.order.MaxProducts()))
	s.form = map[string]any{}
	return nil
}

func (s *session) printOrder() {
	keys := s.order.Keys()
	if len(keys) == 0 {
		fmt.Fprintln(s.out, "order is empty")
		return
	}
	for i, l := range s.order.Lines() {
		k := keys[i]
		qty, price := s.order.Quantity(k), s.order.Price(k)
		fmt.Fprintf(s.out, "%2d. %-30s x%-3d %12s %12s\n", i+1, s.describe(l), qty,
			money.FormatRs(price), money.FormatRs(composer.LineTotal(qty, price)))
	}
	fmt.Fprintf(s.out, "    %d/%d products, total %s\n", len(keys), s.order.MaxProducts(), money.FormatRs(s.order.Total()))
}

// describe labels a line with its variant, looking the variant up in the
// current results or the variant cache when the line itself does not carry it.
func (s *session) describe(l domain.OrderLine) string {
	vid := composer.VariantOf(l)
	if vid == "" {
		return l.Name
	}
	if l.Color != "" || l.Size != "" {
		return l.Name + " (" + domain.Variant{Color: l.Color, Size: l.Size}.Label() + ")"
	}
	var list []domain.Variant
	if p, ok := s.search.Find(l.ProductID); ok {
		list = p.Variants
	} else if cp, ok := s.variants.Get(l.ProductID); ok {
		list = cp.Variants
	}
	for _, x := range list {
		if strings.EqualFold(x.ID.String(), vid) {
			return l.Name + " (" + x.Label() + ")"
		}
	}
	return l.Name
}
