package brackets

import "math/rand"

// Pairing — один слот раунда single elimination. AwayTeamID == nil означает
// bye: команда проходит в следующий раунд без игры.
type Pairing struct {
	Position   int
	HomeTeamID int
	AwayTeamID *int
}

// IsBye reports whether the pairing has no opponent.
func (p Pairing) IsBye() bool {
	return p.AwayTeamID == nil
}

// BuildRoundPairings разбивает упорядоченный список команд на пары
// последовательно: (list[0], list[1]) на позиции 1, (list[2], list[3]) на
// позиции 2 и так далее. Нечётный хвост получает bye. Порядок входного списка
// полностью определяет сетку — это то свойство, которое делает её
// перевыводимой из списка победителей предыдущего раунда.
func BuildRoundPairings(teamIDs []int) []Pairing {
	pairings := make([]Pairing, 0, (len(teamIDs)+1)/2)
	position := 1

	for i := 0; i < len(teamIDs); i += 2 {
		pairing := Pairing{
			Position:   position,
			HomeTeamID: teamIDs[i],
		}
		if i+1 < len(teamIDs) {
			away := teamIDs[i+1]
			pairing.AwayTeamID = &away
		}
		pairings = append(pairings, pairing)
		position++
	}

	return pairings
}

// Shuffle возвращает равномерную случайную перестановку списка (Fisher–Yates).
// Источник случайности инжектируется, чтобы тесты могли фиксировать посев.
func Shuffle(teamIDs []int, src rand.Source) []int {
	result := make([]int, len(teamIDs))
	copy(result, teamIDs)

	rng := rand.New(src)
	for i := len(result) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		result[i], result[j] = result[j], result[i]
	}

	return result
}

// RequiredWins — счёт, необходимый для победы в серии best-of-N:
// BO1 → 1, BO3 → 2, BO5 → 3.
func RequiredWins(bestOf int) int {
	return bestOf/2 + 1
}

// HasDuplicateTeams сообщает, встречается ли какая-то команда в списке дважды.
// В корректной сетке такого не бывает: повтор — признак повреждения данных,
// а не пользовательская ошибка.
func HasDuplicateTeams(teamIDs []int) bool {
	seen := make(map[int]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
