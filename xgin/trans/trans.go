// Package trans 请求参数校验错误的中文翻译
package trans

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zt "github.com/go-playground/validator/v10/translations/zh"
)

var (
	trans     ut.Translator
	transOnce sync.Once
)

// RegisterZHTranslations 向 gin 默认校验器注册中文翻译，仅首次调用生效
func RegisterZHTranslations() error {
	var regErr error
	transOnce.Do(func() {
		zhTrans := zh.New()
		t, ok := ut.New(zhTrans, zhTrans).GetTranslator("zh")
		if !ok {
			regErr = errors.New("zh translator not found")
			return
		}
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			regErr = errors.New("gin binding validator is not *validator.Validate")
			return
		}
		if err := zt.RegisterDefaultTranslations(v, t); err != nil {
			regErr = err
			return
		}
		trans = t
	})
	return regErr
}

// ToZHErrMsg 翻译校验错误；未注册翻译器或非校验错误时原样返回
func ToZHErrMsg(err error) string {
	if err == nil {
		return ""
	}
	var ves validator.ValidationErrors
	if trans == nil || !errors.As(err, &ves) {
		return err.Error()
	}

	byField := make(map[string][]string)
	for _, e := range ves {
		byField[e.Field()] = append(byField[e.Field()], e.Translate(trans))
	}
	fields := make([]string, 0, len(byField))
	for f := range byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, strings.Join(byField[f], ", "))
	}
	return strings.Join(msgs, ", ")
}
