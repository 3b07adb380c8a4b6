package paymentsvc

import (
	"testing"
	"time"
)

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"local format", "0712345678", "254712345678"},
		{"international prefix", "+254712345678", "254712345678"},
		{"already normalized", "254712345678", "254712345678"},
		{"bare subscriber number", "712345678", "254712345678"},
		{"with spaces and dashes", "0712 345-678", "254712345678"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPhoneNumber(tt.phone); got != tt.want {
				t.Errorf("FormatPhoneNumber(%q) = %q; want %q", tt.phone, got, tt.want)
			}
		})
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  bool
	}{
		{"safaricom mobile", "0712345678", true},
		{"newer 1xx range", "0110123456", true},
		{"plus prefix", "+254712345678", true},
		{"landline range", "0212345678", false},
		{"too short", "07123", false},
		{"too long", "07123456789", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePhoneNumber(tt.phone); got != tt.want {
				t.Errorf("ValidatePhoneNumber(%q) = %v; want %v", tt.phone, got, tt.want)
			}
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	// base64("174379" + "key" + "20260101120000")
	got := GeneratePassword("174379", "key", "20260101120000")
	want := "MTc0Mzc5a2V5MjAyNjAxMDExMjAwMDA="
	if got != want {
		t.Errorf("GeneratePassword() = %q; want %q", got, want)
	}
}

func TestParseCallback(t *testing.T) {
	t.Run("successful payment", func(t *testing.T) {
		data := []byte(`{
			"Body": {
				"stkCallback": {
					"MerchantRequestID": "29115-34620561-1",
					"CheckoutRequestID": "ws_CO_191220191020363925",
					"ResultCode": 0,
					"ResultDesc": "The service request is processed successfully.",
					"CallbackMetadata": {
						"Item": [
							{"Name": "Amount", "Value": 500.00},
							{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
							{"Name": "TransactionDate", "Value": 20260115143022},
							{"Name": "PhoneNumber", "Value": 254712345678}
						]
					}
				}
			}
		}`)

		res, err := ParseCallback(data)
		if err != nil {
			t.Fatalf("ParseCallback() error = %v", err)
		}
		if res.CheckoutRequestID != "ws_CO_191220191020363925" {
			t.Errorf("CheckoutRequestID = %q", res.CheckoutRequestID)
		}
		if !res.Succeeded() {
			t.Error("Succeeded() = false; want true")
		}
		if res.Amount != 500 {
			t.Errorf("Amount = %v; want 500", res.Amount)
		}
		if res.ReceiptNumber != "NLJ7RT61SV" {
			t.Errorf("ReceiptNumber = %q; want NLJ7RT61SV", res.ReceiptNumber)
		}
		if res.PhoneNumber != "254712345678" {
			t.Errorf("PhoneNumber = %q; want 254712345678", res.PhoneNumber)
		}
		want := time.Date(2026, 1, 15, 14, 30, 22, 0, nairobiTZ)
		if !res.TransactionDate.Equal(want) {
			t.Errorf("TransactionDate = %v; want %v", res.TransactionDate, want)
		}
	})

	t.Run("cancelled payment", func(t *testing.T) {
		data := []byte(`{
			"Body": {
				"stkCallback": {
					"MerchantRequestID": "29115-34620561-1",
					"CheckoutRequestID": "ws_CO_191220191020363925",
					"ResultCode": 1032,
					"ResultDesc": "Request cancelled by user."
				}
			}
		}`)

		res, err := ParseCallback(data)
		if err != nil {
			t.Fatalf("ParseCallback() error = %v", err)
		}
		if res.Succeeded() {
			t.Error("Succeeded() = true; want false")
		}
		if res.ResultDesc != "Request cancelled by user." {
			t.Errorf("ResultDesc = %q", res.ResultDesc)
		}
	})

	t.Run("missing checkout id", func(t *testing.T) {
		if _, err := ParseCallback([]byte(`{"Body": {"stkCallback": {}}}`)); err == nil {
			t.Error("expected error for missing CheckoutRequestID")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := ParseCallback([]byte(`{not json`)); err == nil {
			t.Error("expected error for malformed payload")
		}
	})
}
