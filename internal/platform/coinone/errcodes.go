package coinone

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// ErrorInfo is the human-readable description of a Coinone error code.
type ErrorInfo struct {
	EN string
	KR string
}

// errorCodes is the Coinone error-code catalog.
var errorCodes = map[int]ErrorInfo{
	// Access & Auth
	4: {EN: "Blocked user access", KR: "제한된 사용자의 접근입니다"},
	10: {EN: "This IP address is not allowed", KR: "접근이 제한된 IP로부터의 요청입니다"},
	12: {EN: "Invalid access token", KR: "유효하지 않은 액세스 토큰입니다"},
	20: {EN: "This service does not exist", KR: "존재하지 않은 API 서비스입니다"},
	21: {EN: "Customers who need to register for API usage", KR: "API 사용을 위한 등록이 필요합니다"},
	22: {EN: "This service is not approved", KR: "승인되지 않은 서비스입니다"},
	23: {EN: "Invalid App Secret", KR: "유효하지 않은 App Secret입니다"},
	24: {EN: "Invalid App Id", KR: "유효하지 않은 APP ID입니다"},
	40: {EN: "Invalid API permission", KR: "승인되지 않은 API 권한입니다"},
	50: {EN: "KYC verification required", KR: "코인원 KYC 인증 이후 API 이용이 가능합니다"},

	// Parameter & Format
	101: {EN: "Invalid format", KR: "유효하지 않은 포맷입니다"},
	103: {EN: "Lack of Balance", KR: "잔고가 부족합니다"},
	104: {EN: "Order id does not exist", KR: "존재하지 않은 주문입니다"},
	105: {EN: "Price is not correct", KR: "올바르지 않은 가격입니다"},
	107: {EN: "Parameter error", KR: "파라메터 에러입니다"},
	108: {EN: "Unknown cryptocurrency", KR: "존재하지 않은 종목 심볼입니다"},
	109: {EN: "Unknown cryptocurrency pair", KR: "존재하지 않은 거래 종목입니다"},
	111: {EN: "Price difference too large", KR: "주문 가격과 현재 가격의 현격한 차이로 주문 불가"},

	// Order Status
	116: {EN: "Already Traded", KR: "이미 체결된 주문입니다"},
	117: {EN: "Already Canceled", KR: "이미 취소된 주문입니다"},
	118: {EN: "Already Submitted", KR: "이미 등록된 주문입니다"},

	// V2 API Nonce
	120: {EN: "V2 API payload is missing", KR: "V2 API payload 값 입력이 필요합니다"},
	121: {EN: "V2 API signature is missing", KR: "V2 API signature 값 입력이 필요합니다"},
	122: {EN: "V2 API nonce is missing", KR: "V2 API nonce 값 입력이 필요합니다"},
	123: {EN: "V2 API signature is not correct", KR: "V2 API signature 값이 올바르지 않습니다"},
	130: {EN: "V2 API Nonce must be a positive integer", KR: "V2 API Nonce 값은 양의 숫자 값이어야 합니다"},
	131: {EN: "V2 API Nonce must be bigger than last nonce", KR: "V2 API Nonce 값은 이전 Nonce 값보다 커야 합니다"},
	132: {EN: "Nonce already used", KR: "이미 사용된 Nonce 값입니다"},
	133: {EN: "Nonce must be in UUID format", KR: "Nonce값은 UUID 포맷이어야 합니다"},

	// Withdrawal
	151: {EN: "V1 Access token not acceptable for V2", KR: "V1의 Access Token으로는 V2 API 이용이 불가합니다"},
	152: {EN: "Invalid address", KR: "유효하지 않은 주소입니다"},
	153: {EN: "Address detected by FDS", KR: "FDS에 의해 제한된 주소입니다"},
	154: {EN: "API withdrawal address required", KR: "API 출금 주소 등록이 필요한 주소입니다"},
	155: {EN: "CODE withdrawal requires deposit address", KR: "CODE 솔루션 출금을 위해 입금주소 생성이 필요합니다"},
	156: {EN: "Withdrawal address does not exist", KR: "존재하지 않은 출금 주소입니다"},
	157: {EN: "Insufficient balance", KR: "잔액이 부족합니다"},
	158: {EN: "Minimum withdrawal quantity insufficient", KR: "최소 출금 가능 금액보다 부족합니다"},
	159: {EN: "Memo required for withdrawal", KR: "출금을 위해서는 Memo 입력이 필요합니다"},
	160: {EN: "Withdrawal/Deposit id is invalid", KR: "올바르지 않은 입출금 내역 식별 ID입니다"},
	161: {EN: "Price is required for LIMIT or STOP_LIMIT", KR: "지정가/예약 지정가 주문에 가격이 필요합니다"},
	162: {EN: "Qty is required for LIMIT/STOP_LIMIT or MARKET(SELL)", KR: "지정가/예약 지정가/시장가(매도) 주문에 수량이 필요합니다"},

	// Order
	300: {EN: "Invalid order information", KR: "유효하지 않은 주문 정보입니다"},
	305: {EN: "Invalid quantity", KR: "잘못된 수량이 입력되었습니다"},
	306: {EN: "Cannot process orders below minimum amount", KR: "최소 수량 이하로는 주문이 불가합니다"},
	307: {EN: "Cannot process orders exceed maximum amount", KR: "최대 수량 이상으로는 주문이 불가합니다"},
	308: {EN: "Price is out of range", KR: "주문 가격이 허용 범위를 벗어났습니다"},
	309: {EN: "Qty is out of range", KR: "주문 수량이 허용 범위를 벗어났습니다"},

	// Withdrawal & Account Restrictions
	3001: {EN: "Withdrawal suspended for this asset", KR: "출금이 일시적 혹은 영구적으로 정지된 가상자산입니다"},
	3002: {EN: "Withdrawal is rejected", KR: "출금이 특정 사유로 인해 거절된 상태입니다"},
	3003: {EN: "Exceed daily withdrawal limit", KR: "일일 출금 가능 수량을 초과 하였습니다"},
	3004: {EN: "Failed by 24-hour withdrawal delay policy", KR: "24시간 출금 지연제에 의한 출금가능 한도 초과로 출금이 제한됩니다"},
	3005: {EN: "Phone verification required", KR: "휴대폰 번호 인증 완료 하신 후에 재시도 부탁드립니다"},
	3006: {EN: "Withdrawal restricted for 72 hours after first KRW deposit", KR: "최초 원화 입금 후 72시간 동안은 가상자산 출금이 제한됩니다"},
	3007: {EN: "Balance error. Contact CS", KR: "잔고에 오류가 발생하였습니다. 고객 센터에 연락 부탁드립니다"},
	3009: {EN: "Account detected by FDS monitoring", KR: "이상거래에 탐지되어 이용할 수 없는 상태입니다"},
	3010: {EN: "Account is locked", KR: "계정 잠금으로 인해 출금이 불가한 경우입니다"},
	3012: {EN: "CODE error: withdrawal rejected by CODE solution", KR: "CODE 솔루션에서 출금을 거절한 경우입니다"},
	3013: {EN: "CODE error: invalid parameter", KR: "CODE 거래소/수취인 정보에서 에러가 발생한 경우입니다"},
	3014: {EN: "CODE error: address does not exist", KR: "입금 주소가 상대 VASP에서 찾을 수 없는 경우"},
	3015: {EN: "CODE error: recipient information mismatch", KR: "코인원/상대 VASP 수취인 정보가 다를 경우"},
	3016: {EN: "CODE error: recipient information invalid", KR: "주소록 수취인 정보 수정이 필요한 경우"},
	3017: {EN: "Whitelist address re-verification required", KR: "KYC 재이행으로 출금주소 재확인이 필요한 경우입니다"},
	3018: {EN: "Register to whitelist/allowed address list", KR: "출금 허용 주소 또는 주소록에 추가 정보 등록이 필요합니다"},
}

var (
	authCodes      = []int{4, 10, 12, 20, 21, 22, 23, 24, 40, 50}
	nonceCodes     = []int{120, 121, 122, 123, 130, 131, 132, 133}
	orderCodes     = []int{103, 104, 105, 111, 116, 117, 118, 300, 305, 306, 307, 308, 309}
	parameterCodes = []int{101, 107, 108, 109}
)

// LookupError returns the catalog entry for code.
func LookupError(code int) (ErrorInfo, bool) {
	info, ok := errorCodes[code]
	return info, ok
}

// ErrorMessage returns the message for code in lang ("en" or "kr").
// Unknown codes yield "Unknown error code: N".
func ErrorMessage(code int, lang string) string {
	info, ok := errorCodes[code]
	if !ok {
		return fmt.Sprintf("Unknown error code: %d", code)
	}
	if lang == "kr" {
		return info.KR
	}
	return info.EN
}

// ErrorDescription is a catalog lookup with its category flags.
type ErrorDescription struct {
	Code      int    `json:"code"`
	Known     bool   `json:"known"`
	Message   string `json:"message"`
	Auth      bool   `json:"auth"`
	Nonce     bool   `json:"nonce"`
	Order     bool   `json:"order"`
	Parameter bool   `json:"parameter"`
}

// DescribeError looks code up in the catalog. Any lang other than "kr"
// means English.
func DescribeError(code int, lang string) ErrorDescription {
	if lang != "kr" {
		lang = "en"
	}
	_, known := errorCodes[code]
	return ErrorDescription{
		Code:      code,
		Known:     known,
		Message:   ErrorMessage(code, lang),
		Auth:      IsAuthError(code),
		Nonce:     IsNonceError(code),
		Order:     IsOrderError(code),
		Parameter: IsParameterError(code),
	}
}

func IsAuthError(code int) bool      { return slices.Contains(authCodes, code) }
func IsNonceError(code int) bool     { return slices.Contains(nonceCodes, code) }
func IsOrderError(code int) bool     { return slices.Contains(orderCodes, code) }
func IsParameterError(code int) bool { return slices.Contains(parameterCodes, code) }

// APIError is a non-success response from the Coinone API.
type APIError struct {
	Code      int    // 0 when the response carried no numeric code
	RawCode   string // error_code as sent, "UNKNOWN" when absent
	Message   string
	MessageKR string
}

// NewAPIError builds an APIError from the raw error_code field.
func NewAPIError(rawCode string) *APIError {
	if rawCode == "" {
		rawCode = "UNKNOWN"
	}
	e := &APIError{RawCode: rawCode}
	if code, err := strconv.Atoi(rawCode); err == nil {
		e.Code = code
		e.Message = ErrorMessage(code, "en")
		e.MessageKR = ErrorMessage(code, "kr")
	}
	return e
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API Error: %s (%s)", e.RawCode, e.Message)
	}
	return "API Error: " + e.RawCode
}

// Unwrap maps the code onto a domain sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case IsAuthError(e.Code):
		return domain.ErrUnauthorized
	case IsNonceError(e.Code):
		return domain.ErrSigningFailed
	case IsOrderError(e.Code), IsParameterError(e.Code):
		return domain.ErrInvalidOrder
	default:
		return domain.ErrExchange
	}
}
