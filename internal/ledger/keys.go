package ledger

import id "pollbook/pkg/domain"

// Survey engine keys. Everything a survey owns is namespaced by its id.

func SurveyKey(surveyID id.SurveyID) Key {
	return NewKey("survey", surveyID.String())
}

func VoteKey(surveyID id.SurveyID, voter id.Address) Key {
	return NewKey("vote", surveyID.String(), voter.String())
}

func VoteCountKey(surveyID id.SurveyID, candidate id.Address) Key {
	return NewKey("vote_count", surveyID.String(), candidate.String())
}

func VoterListKey(surveyID id.SurveyID) Key {
	return NewKey("voter_list", surveyID.String())
}

var (
	SurveyCountKey = NewKey("survey_count")
	VoteFeeKey     = NewKey("vote_fee")
)

// Identity registry keys.

func CandidateKey(wallet id.Address) Key {
	return NewKey("candidate", wallet.String())
}

func UserKey(wallet id.Address) Key {
	return NewKey("user", wallet.String())
}

var (
	CandidateListKey  = NewKey("candidate_list")
	CandidateCountKey = NewKey("candidate_count")
	UserListKey       = NewKey("user_list")
	UserCountKey      = NewKey("user_count")
)
