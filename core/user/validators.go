package user

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/shule/core"
	appfs "github.com/trezcool/shule/fs"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"

	pwdPolicyTexts = map[string]string{
		pwdMinLenTag:     pwdMinLenText,
		pwdNoSpaceTag:    pwdNoSpaceText,
		pwdNotAllNumTag:  pwdNotAllNumText,
		pwdComplexityTag: pwdComplexityText,
		pwdAttrSimTag:    pwdAttrSimText,
		pwdNoCommonTag:   pwdNoCommonText,
	}

	commonPasswords    []string // sorted, lower-cased
	loadCommonPwdsOnce sync.Once
)

// RegisterValidators registers the user struct validations and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	loadCommonPwdsOnce.Do(loadCommonPasswords)

	validate.RegisterStructValidation(userStructValidation, NewUser{})
	for tag, text := range pwdPolicyTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open(appfs.CommonPasswords)
	if err != nil {
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords = append(commonPasswords, strings.ToLower(pwd))
		}
	}
	sort.Strings(commonPasswords)
}

// userStructValidation does struct level validation on NewUser.
func userStructValidation(sl validator.StructLevel) {
	if nu, ok := sl.Current().Interface().(NewUser); ok && nu.Password != "" {
		if tag := checkPasswordPolicy(nu.Password, nu.Name, nu.Email); tag != "" {
			sl.ReportError(nu.Password, "password", "Password", tag, "")
		}
	}
}

// CheckPassword applies the password policy to pwd, returning a ValidationError on the
// "password" field if it is not satisfied.
func CheckPassword(pwd string, usrAttrs ...string) error {
	loadCommonPwdsOnce.Do(loadCommonPasswords)

	if tag := checkPasswordPolicy(pwd, usrAttrs...); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdPolicyTexts[tag]})
	}
	return nil
}

// checkPasswordPolicy returns the tag of the first rule pwd breaks, or "":
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func checkPasswordPolicy(pwd string, usrAttrs ...string) string {
	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	runes := []rune(pwd)
	pwdLen := len(runes)
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}
	for _, char := range runes {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		return pwdComplexityTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range usrAttrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}

	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdNoCommonTag
	}
	return ""
}
