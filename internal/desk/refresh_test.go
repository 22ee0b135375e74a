package desk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"docdesk/internal/desk"
	"docdesk/internal/remote"
	"docdesk/internal/testutil"
)

func sheetRow(serial, name, renewal, renewalDate, status string) []string {
	row := make([]string, 17)
	row[0] = "10/01/2024 09:00:00"
	row[1] = serial
	row[2] = name
	row[6] = renewal
	row[7] = renewalDate
	row[11] = status
	return row
}

func TestDeskService_Refresh(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarness(t)

	if err := h.Store.AddDocument(&desk.DocumentItem{ID: "stale", SerialNo: "X1", Name: "Stale", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	h.Remote.SetRows(testutil.TestSheets.Documents, [][]string{
		remote.DocumentsHeader,
		sheetRow("D0001", "Trade licence", "Yes", "01/02/2024", "Active"),
		sheetRow("", "Draft", "No", "", "Active"),
		sheetRow("D0003", "", "No", "", "Active"),
	})
	h.Remote.SetRows(testutil.TestSheets.Master, [][]string{
		remote.MasterHeader,
		{"Acme", "Licence", "Trade"},
		{"ACME", "licence", "trade"},
		{"Globex", "Permit", ""},
		{"Globex", "Permit", "Fire"},
	})

	res, err := h.Service.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Documents != 2 || res.MasterData != 2 {
		t.Errorf("Refresh() = %+v, want 2 documents and 2 master entries", res)
	}

	docs, _ := h.Service.ListDocuments()
	if len(docs) != 2 {
		t.Fatalf("cached documents = %d, want 2", len(docs))
	}
	if docs[0].SerialNo != "D0001" || !docs[0].NeedsRenewal {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].SerialNo != desk.PendingSerial {
		t.Errorf("docs[1].SerialNo = %q, want Pending for a blank serial", docs[1].SerialNo)
	}
	if want := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC); !docs[0].CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", docs[0].CreatedAt, want)
	}

	master, _ := h.Service.ListMasterData()
	if len(master) != 2 || master[1].CompanyName != "Globex" {
		t.Errorf("master data = %+v", master)
	}
}

func TestDeskService_Refresh_RemoteFailureKeepsCache(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarness(t)

	if err := h.Store.AddDocument(&desk.DocumentItem{ID: "kept", SerialNo: "D1", Name: "Kept", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	empty := remote.NewMemory("Documents")
	svc := desk.NewDeskService(empty, empty, h.Store, h.Pacer, h.Opener, desk.NewNopLogger(), h.Clock,
		testutil.NewStubIDGenerator(), desk.Settings{Sheets: testutil.TestSheets})

	if _, err := svc.Refresh(context.Background()); !errors.Is(err, remote.ErrRemote) {
		t.Fatalf("Refresh() error = %v, want ErrRemote", err)
	}
	docs, _ := h.Store.ListDocuments()
	if len(docs) != 1 {
		t.Errorf("cached documents = %d, want the old one kept", len(docs))
	}
}

func TestDeskService_DueForRenewal(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarness(t)

	// the clock stands at 15/01/2024
	docs := []*desk.DocumentItem{
		{ID: "1", Name: "Next week", NeedsRenewal: true, RenewalDate: "22/01/2024", Status: desk.StatusActive},
		{ID: "2", Name: "Overdue", NeedsRenewal: true, RenewalDate: "10/01/2024", Status: desk.StatusActive},
		{ID: "3", Name: "Far away", NeedsRenewal: true, RenewalDate: "01/06/2024", Status: desk.StatusActive},
		{ID: "4", Name: "Inactive", NeedsRenewal: true, RenewalDate: "20/01/2024", Status: desk.StatusInactive},
		{ID: "5", Name: "No renewal", NeedsRenewal: false, RenewalDate: "20/01/2024", Status: desk.StatusActive},
		{ID: "6", Name: "Garbled", NeedsRenewal: true, RenewalDate: "soon", Status: desk.StatusActive},
		{ID: "7", Name: "Today", NeedsRenewal: true, RenewalDate: "2024-01-15", Status: desk.StatusActive},
	}
	for _, d := range docs {
		d.CreatedAt = h.Clock.Now()
		if err := h.Store.AddDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	due, err := h.Service.DueForRenewal(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("DueForRenewal() error = %v", err)
	}

	want := []struct {
		name string
		days int
	}{
		{"Overdue", -5},
		{"Today", 0},
		{"Next week", 7},
	}
	if len(due) != len(want) {
		t.Fatalf("len(due) = %d, want %d: %+v", len(due), len(want), due)
	}
	for i, w := range want {
		if due[i].Document.Name != w.name || due[i].DaysLeft != w.days {
			t.Errorf("due[%d] = %s (%d days), want %s (%d days)", i, due[i].Document.Name, due[i].DaysLeft, w.name, w.days)
		}
	}
}
