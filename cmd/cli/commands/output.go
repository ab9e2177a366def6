package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

func parseID(arg string) (int64, error) {
	return services.ParseBookingID(arg)
}

// readJSONInput decodes a request body from path, or from stdin when path is "-"
func readJSONInput(path string, stdin io.Reader, dst any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBooking(w io.Writer, b *model.Booking) {
	fmt.Fprintf(w, "Booking ID: %d\n", b.ID)
	fmt.Fprintf(w, "Type:       %s - %s\n", b.Type(), b.Details().Label())
	fmt.Fprintf(w, "Date:       %s %s\n", b.Date.Format("2006-01-02 (Monday)"), b.StartTime)
	fmt.Fprintf(w, "Status:     %s\n", b.Status)
	fmt.Fprintf(w, "Frequency:  %s\n", b.FrequencyType)
	if b.ParentBookingID != nil {
		fmt.Fprintf(w, "Parent:     #%d\n", *b.ParentBookingID)
	}
	if b.CancellationReason != nil {
		fmt.Fprintf(w, "Cancelled:  %s\n", *b.CancellationReason)
	}
}

func printExpansion(w io.Writer, r *services.ExpansionResult) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "\nSeries of #%d: %d planned, %d created, %d already present\n",
		r.ParentBookingID, r.Planned, r.Created(), r.Skipped)
	if len(r.ClosedDates) > 0 {
		fmt.Fprintf(w, "Skipped closure days: %s\n", strings.Join(r.ClosedDates, ", "))
	}
	if r.Truncated {
		fmt.Fprintln(w, "Series was truncated at the occurrence limit")
	}
}

// reportView prints a booking view. A failed expansion still prints what was committed
// before returning the error.
func reportView(w io.Writer, heading string, view *services.BookingView, err error) error {
	var expansionErr *services.ExpansionError
	if err != nil && !(errors.As(err, &expansionErr) && view != nil) {
		return err
	}

	fmt.Fprintf(w, "\n✓ %s\n\n", heading)
	printBooking(w, view.Booking)
	printExpansion(w, view.Expansion)
	fmt.Fprintln(w)
	return err
}

func printBookingTable(w io.Writer, bookings []*model.Booking) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTART\tTYPE\tDESCRIPTION\tSTATUS\tPARENT")
	for _, b := range bookings {
		parent := "-"
		if b.ParentBookingID != nil {
			parent = fmt.Sprintf("#%d", *b.ParentBookingID)
		} else if b.IsParentBooking {
			parent = "series"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Date.Format(model.DateLayout), b.StartTime, b.Type(), b.Details().Label(), b.Status, parent)
	}
	tw.Flush()
}
