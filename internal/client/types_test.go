package client

import "testing"

func TestQueryEmpty(t *testing.T) {
	if !(Query{}).Empty() {
		t.Fatal("zero query should be empty")
	}
	if !(Query{Name: "  ", Phone: "\t"}).Empty() {
		t.Fatal("whitespace-only fields should count as empty")
	}
	if (Query{Email: "a@b.jp"}).Empty() {
		t.Fatal("query with a searchable field is not empty")
	}
	// the server rejects address-only searches, so the client skips them
	if !(Query{Address: "Tokyo"}).Empty() {
		t.Fatal("address alone is unsearchable and must be skipped")
	}
	if (Query{Kana: "たなか", Address: "Tokyo"}).Empty() {
		t.Fatal("kana makes the query searchable")
	}
}

func TestBuildSnapshotFromDraft(t *testing.T) {
	class := uint(3)
	draft := Draft{
		Name:            "Tanaka Taro",
		Kana:            "   ",
		Email:           "",
		Phone:           "0312345678",
		CustomerClassID: &class,
	}
	snap := BuildSnapshot(draft, nil)

	if snap.SourceCustomer != nil {
		t.Fatal("draft snapshot must have null source_customer")
	}
	if snap.Name == nil || *snap.Name != "Tanaka Taro" {
		t.Fatalf("name wrong: %v", snap.Name)
	}
	if snap.Kana != nil {
		t.Fatal("whitespace-only kana must become null")
	}
	if snap.Email != nil {
		t.Fatal("empty email must become null")
	}
	if snap.CustomerClassID == nil || *snap.CustomerClassID != 3 {
		t.Fatalf("reference id lost: %v", snap.CustomerClassID)
	}
}

func TestBuildSnapshotFromCandidate(t *testing.T) {
	detail := CustomerDetail{
		ID:            42,
		Name:          "Tanaka Taro",
		Phone:         "0312345678",
		Email:         "t@example.com",
		Birthdate:     "1990-05-04T00:00:00Z",
		CustomerClass: &Ref{ID: 2, Name: "General"},
		Gender:        &Ref{ID: 1, Name: "M"},
	}
	// the draft's own entries are superseded by the confirmed candidate
	draft := Draft{Name: "Tanaka", Phone: "different"}
	snap := BuildSnapshot(draft, &detail)

	if snap.SourceCustomer == nil || *snap.SourceCustomer != 42 {
		t.Fatalf("source_customer must be the candidate id, got %v", snap.SourceCustomer)
	}
	if *snap.Name != "Tanaka Taro" || *snap.Phone != "0312345678" {
		t.Fatalf("candidate fields must be copied verbatim: %+v", snap)
	}
	// nested refs reduce to bare ids
	if snap.CustomerClassID == nil || *snap.CustomerClassID != 2 {
		t.Fatalf("customer_class not reduced to id: %v", snap.CustomerClassID)
	}
	if snap.GenderID == nil || *snap.GenderID != 1 {
		t.Fatalf("gender not reduced to id: %v", snap.GenderID)
	}
	if snap.RegionID != nil {
		t.Fatal("absent region must stay null")
	}
	// API timestamps collapse to the plain date write payloads expect
	if snap.Birthdate == nil || *snap.Birthdate != "1990-05-04" {
		t.Fatalf("birthdate not reduced to a date: %v", snap.Birthdate)
	}
}

func TestBuildSnapshotPure(t *testing.T) {
	draft := Draft{Name: " padded "}
	_ = BuildSnapshot(draft, nil)
	if draft.Name != " padded " {
		t.Fatal("input draft must not be mutated")
	}
}

func TestBlankToNullIdempotent(t *testing.T) {
	for _, in := range []string{"", "  ", "text", " text "} {
		once := blankToNull(in)
		var again *string
		if once == nil {
			again = blankToNull("")
		} else {
			again = blankToNull(*once)
		}
		if (once == nil) != (again == nil) {
			t.Fatalf("not idempotent for %q", in)
		}
		if once != nil && *once != *again {
			t.Fatalf("not idempotent for %q: %q vs %q", in, *once, *again)
		}
	}
}
