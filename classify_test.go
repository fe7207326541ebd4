package toolrpc

import "testing"

func TestIsWriteTool(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"create_invoice", true},
		{"update_contact", true},
		{"delete_payment", true},
		{"edit_journal", true},
		{"file_attachment", true},
		{"generate_report", true},
		{"cancel_order", true},
		{"reconcile_ledger", true},
		{"import_bank_feed", true},
		{"adjust_balance", true},
		{"stock_take", true},
		{"record_payment", true},
		{"get_balance", false},
		{"list_invoices", false},
		{"search_contacts", false},
		{"get_ledger", false},
	}

	for _, tt := range tests {
		if got := IsWriteTool(tt.name); got != tt.want {
			t.Errorf("IsWriteTool(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
