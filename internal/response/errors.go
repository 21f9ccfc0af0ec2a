package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrAdminAccessOnly  ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrExamInvalid    ErrCode = "EXAM_INVALID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Course forms ──────────────────────────────────────────────────
	ErrFormNotFound     ErrCode = "FORM_NOT_FOUND"
	ErrFormClosed       ErrCode = "FORM_CLOSED"
	ErrSubmitInProgress ErrCode = "SUBMIT_IN_PROGRESS"
	ErrRestorePending   ErrCode = "RESTORE_PENDING"
	ErrNoRestoreOffer   ErrCode = "NO_RESTORE_OFFER"

	// ─── Exam builder ──────────────────────────────────────────────────
	ErrNotEditing       ErrCode = "NOT_EDITING"
	ErrAlreadyEditing   ErrCode = "ALREADY_EDITING"
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"
	ErrNoPendingDelete  ErrCode = "NO_PENDING_DELETE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstream ErrCode = "UPSTREAM_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "رمز المصادقة مطلوب."
	case ErrTokenInvalid:
		return "رمز المصادقة غير صالح."
	case ErrTokenExpired:
		return "انتهت صلاحية رمز المصادقة."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "ليس لديك صلاحية للوصول إلى هذا المورد."
	case ErrPermissionDenied:
		return "تم رفض الإذن."
	case ErrAdminAccessOnly:
		return "هذا المورد مخصص للمسؤولين فقط."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "فشل التحقق. يرجى مراجعة البيانات المدخلة."
	case ErrExamInvalid:
		return "يوجد أسئلة غير مكتملة في الاختبارات."
	case ErrInvalidPayload:
		return "بيانات الطلب غير صالحة."

	// ─── Course forms ──────────────────────────────────────────────────
	case ErrFormNotFound:
		return "النموذج غير موجود أو انتهت جلسته."
	case ErrFormClosed:
		return "تم إغلاق هذا النموذج."
	case ErrSubmitInProgress:
		return "جاري حفظ الدورة بالفعل."
	case ErrRestorePending:
		return "يرجى اختيار استعادة المسودة أو تجاهلها أولاً."
	case ErrNoRestoreOffer:
		return "لا توجد مسودة لاستعادتها."

	// ─── Exam builder ──────────────────────────────────────────────────
	case ErrNotEditing:
		return "لا يوجد اختبار قيد التحرير."
	case ErrAlreadyEditing:
		return "يوجد اختبار آخر قيد التحرير."
	case ErrExamNotFound:
		return "الاختبار غير موجود."
	case ErrQuestionNotFound:
		return "السؤال غير موجود."
	case ErrNoPendingDelete:
		return "لا يوجد اختبار بانتظار تأكيد الحذف."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "المورد غير موجود."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "يجب رفع ملف."
	case ErrUnsupportedFile:
		return "نوع الملف غير مدعوم."
	case ErrFileTooLarge:
		return "حجم الملف يتجاوز الحد المسموح."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrUpstream:
		return "حدث خطأ أثناء حفظ الدورة"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "طلبات كثيرة جداً. يرجى المحاولة لاحقاً."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "حدث خطأ داخلي في الخادم."
	default:
		return "حدث خطأ غير متوقع."
	}
}
