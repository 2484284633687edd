package i18n

import "strings"

var translations = map[string]map[string]string{
	LanguageArabic: {
		// errors
		"invalid_json":        "تعذر قراءة البيانات المرسلة",
		"invalid_query":       "معايير البحث غير صالحة",
		"validation_failed":   "يرجى تصحيح الحقول المحددة",
		"not_found":           "العنصر المطلوب غير موجود",
		"not_authenticated":   "يرجى تسجيل الدخول",
		"not_authorized":      "ليست لديك صلاحية لتنفيذ هذا الإجراء",
		"invalid_credentials": "البريد الإلكتروني أو كلمة المرور غير صحيحة",
		"save_failed":         "تعذر حفظ البيانات، يرجى المحاولة مرة أخرى",
		"query_failed":        "تعذر تحميل البيانات، يرجى المحاولة مرة أخرى",
		"delete_failed":       "تعذر حذف العنصر، يرجى المحاولة مرة أخرى",
		"conflict":            "يوجد سجل مطابق بالفعل",
		"invalid_transition":  "لا يمكن تغيير الحالة بهذا الشكل",
		"export_failed":       "تعذر إنشاء الملف",
		"session_failed":      "تعذر بدء الجلسة",

		// field errors
		"required":             "هذا الحقل مطلوب",
		"invalid_email":        "البريد الإلكتروني غير صالح",
		"invalid_value":        "القيمة غير صالحة",
		"out_of_range":         "القيمة خارج النطاق المسموح",
		"must_be_positive":     "يجب أن تكون القيمة أكبر من صفر",
		"must_not_be_negative": "لا يمكن أن تكون القيمة سالبة",
		"too_long":             "القيمة أطول من المسموح",
		"invalid_date_range":   "تاريخ الانتهاء يسبق تاريخ البدء",
		"in_past":              "يجب أن يكون التاريخ في المستقبل",
		"exceeds_total":        "القيمة تتجاوز الإجمالي",

		"client_status.active":   "نشط",
		"client_status.inactive": "غير نشط",
		"client_status.prospect": "محتمل",

		"project_status.planning":  "تخطيط",
		"project_status.active":    "نشط",
		"project_status.on_hold":   "متوقف مؤقتاً",
		"project_status.completed": "مكتمل",
		"project_status.cancelled": "ملغي",

		"deliverable_status.pending":     "قيد الانتظار",
		"deliverable_status.in_progress": "قيد التنفيذ",
		"deliverable_status.submitted":   "مُسلَّم",
		"deliverable_status.approved":    "معتمد",
		"deliverable_status.rejected":    "مرفوض",

		"invoice_status.draft":     "مسودة",
		"invoice_status.sent":      "مرسلة",
		"invoice_status.paid":      "مدفوعة",
		"invoice_status.overdue":   "متأخرة",
		"invoice_status.cancelled": "ملغاة",

		"meeting_status.scheduled": "مجدول",
		"meeting_status.completed": "مكتمل",
		"meeting_status.cancelled": "ملغي",

		"meeting_kind.in_person": "حضوري",
		"meeting_kind.online":    "عن بعد",
		"meeting_kind.phone":     "هاتفي",

		"member_type.pm":             "مدير المشروع",
		"member_type.consultant":     "مستشار",
		"member_type.sub_consultant": "مستشار مساعد",
		"member_type.client_main":    "العميل الرئيسي",
		"member_type.client_sub":     "عميل فرعي",

		"visibility.full_project":  "المشروع كاملاً",
		"visibility.assigned_only": "المهام المسندة فقط",
		"visibility.restricted":    "مقيد",

		"assignment_role.owner":             "مسؤول",
		"assignment_role.contributor":       "مساهم",
		"assignment_role.internal_reviewer": "مراجع داخلي",

		"access_level.view":    "عرض",
		"access_level.comment": "تعليق",
		"access_level.review":  "مراجعة",
		"access_level.approve": "اعتماد",

		"role.system_admin":    "مدير النظام",
		"role.project_manager": "مدير مشروع",
		"role.consultant":      "مستشار",
		"role.sub_consultant":  "مستشار مساعد",
		"role.main_client":     "عميل رئيسي",
		"role.sub_client":      "عميل فرعي",

		"report.sheet.clients":       "العملاء",
		"report.column.name":         "اسم العميل",
		"report.column.industry":     "القطاع",
		"report.column.contact":      "جهة الاتصال",
		"report.column.email":        "البريد الإلكتروني",
		"report.column.status":       "الحالة",
		"report.column.total_value":  "القيمة الإجمالية",
		"report.column.paid_value":   "المدفوع",
		"report.column.outstanding":  "المتبقي",
		"report.column.satisfaction": "نسبة الرضا",
		"report.column.projects":     "عدد المشاريع",
		"report.column.tags":         "الوسوم",

		"currency.SAR": "ر.س",
	},
	LanguageEnglish: {
		"invalid_json":        "The submitted data could not be read",
		"invalid_query":       "The search criteria are invalid",
		"validation_failed":   "Please correct the highlighted fields",
		"not_found":           "The requested item was not found",
		"not_authenticated":   "Please sign in",
		"not_authorized":      "You are not allowed to perform this action",
		"invalid_credentials": "Incorrect email or password",
		"save_failed":         "The data could not be saved, please try again",
		"query_failed":        "The data could not be loaded, please try again",
		"delete_failed":       "The item could not be deleted, please try again",
		"conflict":            "A matching record already exists",
		"invalid_transition":  "The status cannot be changed this way",
		"export_failed":       "The file could not be generated",
		"session_failed":      "The session could not be started",

		"required":             "This field is required",
		"invalid_email":        "Invalid email address",
		"invalid_value":        "Invalid value",
		"out_of_range":         "Value is out of the allowed range",
		"must_be_positive":     "Value must be greater than zero",
		"must_not_be_negative": "Value cannot be negative",
		"too_long":             "Value is too long",
		"invalid_date_range":   "End date is before start date",
		"in_past":              "Date must be in the future",
		"exceeds_total":        "Value exceeds the total",

		"client_status.active":   "Active",
		"client_status.inactive": "Inactive",
		"client_status.prospect": "Prospect",

		"project_status.planning":  "Planning",
		"project_status.active":    "Active",
		"project_status.on_hold":   "On hold",
		"project_status.completed": "Completed",
		"project_status.cancelled": "Cancelled",

		"deliverable_status.pending":     "Pending",
		"deliverable_status.in_progress": "In progress",
		"deliverable_status.submitted":   "Submitted",
		"deliverable_status.approved":    "Approved",
		"deliverable_status.rejected":    "Rejected",

		"invoice_status.draft":     "Draft",
		"invoice_status.sent":      "Sent",
		"invoice_status.paid":      "Paid",
		"invoice_status.overdue":   "Overdue",
		"invoice_status.cancelled": "Cancelled",

		"meeting_status.scheduled": "Scheduled",
		"meeting_status.completed": "Completed",
		"meeting_status.cancelled": "Cancelled",

		"meeting_kind.in_person": "In person",
		"meeting_kind.online":    "Online",
		"meeting_kind.phone":     "Phone",

		"member_type.pm":             "Project manager",
		"member_type.consultant":     "Consultant",
		"member_type.sub_consultant": "Sub-consultant",
		"member_type.client_main":    "Main client",
		"member_type.client_sub":     "Sub-client",

		"visibility.full_project":  "Full project",
		"visibility.assigned_only": "Assigned only",
		"visibility.restricted":    "Restricted",

		"assignment_role.owner":             "Owner",
		"assignment_role.contributor":       "Contributor",
		"assignment_role.internal_reviewer": "Internal reviewer",

		"access_level.view":    "View",
		"access_level.comment": "Comment",
		"access_level.review":  "Review",
		"access_level.approve": "Approve",

		"role.system_admin":    "System administrator",
		"role.project_manager": "Project manager",
		"role.consultant":      "Consultant",
		"role.sub_consultant":  "Sub-consultant",
		"role.main_client":     "Main client",
		"role.sub_client":      "Sub-client",

		"report.sheet.clients":       "Clients",
		"report.column.name":         "Client name",
		"report.column.industry":     "Industry",
		"report.column.contact":      "Contact",
		"report.column.email":        "Email",
		"report.column.status":       "Status",
		"report.column.total_value":  "Total value",
		"report.column.paid_value":   "Paid",
		"report.column.outstanding":  "Outstanding",
		"report.column.satisfaction": "Satisfaction",
		"report.column.projects":     "Projects",
		"report.column.tags":         "Tags",

		"currency.SAR": "SAR",
	},
}

// T translates code into lang. Unknown languages fall back to Arabic and
// unknown codes are returned unchanged.
func T(lang string, code string) string {
	table, ok := translations[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		table = translations[DefaultLanguage]
	}
	if value, exists := table[code]; exists {
		return value
	}
	if value, exists := translations[DefaultLanguage][code]; exists {
		return value
	}
	return code
}

// Label translates an enum value within a namespace such as "invoice_status".
func Label(lang string, namespace string, value string) string {
	key := namespace + "." + value
	translated := T(lang, key)
	if translated == key {
		return value
	}
	return translated
}

// Fields translates a field error map into lang.
func Fields(lang string, fieldCodes map[string]string) map[string]string {
	if len(fieldCodes) == 0 {
		return nil
	}
	translated := make(map[string]string, len(fieldCodes))
	for field, code := range fieldCodes {
		translated[field] = T(lang, code)
	}
	return translated
}
