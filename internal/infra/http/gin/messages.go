package ginserver

import (
	"golang.org/x/text/language"

	"weekrent/internal/domain/relisting"
)

var (
	supportedLanguages = []language.Tag{language.English, language.Korean}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

var outcomeMessages = map[language.Tag]map[relisting.Kind]string{
	language.English: {
		relisting.KindMerged:        "The cancelled dates were added to your current listing.",
		relisting.KindRelisted:      "The cancelled dates are listed again.",
		relisting.KindLimitExceeded: "You already have the maximum number of active listings. Find this property under Expired.",
		relisting.KindShortTerm:     "The freed dates are shorter than the minimum stay. Find this property under Expired.",
	},
	language.Korean: {
		relisting.KindMerged:        "취소된 날짜가 기존 광고에 추가되었습니다.",
		relisting.KindRelisted:      "취소된 날짜로 매물이 다시 광고됩니다.",
		relisting.KindLimitExceeded: "광고 가능한 매물 수를 초과했습니다. 만료 탭에서 확인하세요.",
		relisting.KindShortTerm:     "남은 기간이 최소 숙박 기간보다 짧습니다. 만료 탭에서 확인하세요.",
	},
}

// negotiateLanguage picks the best supported language for an Accept-Language header.
func negotiateLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return language.English
	}
	return supportedLanguages[index]
}

func outcomeMessage(kind relisting.Kind, acceptLanguage string) (string, language.Tag) {
	tag := negotiateLanguage(acceptLanguage)
	if msg, ok := outcomeMessages[tag][kind]; ok {
		return msg, tag
	}
	return outcomeMessages[language.English][kind], language.English
}
