package vnpay

const SuccessCode = "00"

var responseMessages = map[string]string{
	"00": "Transaction successful",
	"07": "Transaction successful. Suspicious transaction (related to fraud, unusual transaction)",
	"09": "Transaction failed. Customer card not registered for Internet Banking",
	"10": "Transaction failed. Customer authenticated card information incorrectly more than 3 times",
	"11": "Transaction failed. Payment timeout. Please retry.",
	"12": "Transaction failed. Customer card is locked",
	"13": "Transaction failed. Customer entered incorrect OTP",
	"24": "Transaction cancelled",
	"51": "Transaction failed. Customer account insufficient balance",
	"65": "Transaction failed. Customer exceeded daily transaction limit",
	"75": "Payment gateway under maintenance",
	"79": "Transaction failed. Customer entered payment password incorrectly too many times",
	"99": "Unknown error",
}

// ResponseMessage explains a vnp_ResponseCode.
func ResponseMessage(code string) string {
	if msg, ok := responseMessages[code]; ok {
		return msg
	}
	return "Unknown response code"
}

// IsSuccess reports whether code marks a settled payment.
func IsSuccess(code string) bool {
	return code == SuccessCode
}
